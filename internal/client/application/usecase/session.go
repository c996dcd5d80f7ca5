package usecase

import (
	"fmt"

	"cabconnect/internal/client/domain"
)

// SessionSource gives use cases the signed-in identity.
type SessionSource interface {
	Current() (domain.Session, bool)
}

func requireRole(src SessionSource, role domain.Role) (domain.Session, error) {
	sess, ok := src.Current()
	if !ok {
		return domain.Session{}, domain.ErrNotAuthenticated
	}
	if sess.Role != role {
		return domain.Session{}, fmt.Errorf("%w: %s required", domain.ErrWrongRole, role)
	}
	return sess, nil
}
