package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors what the gateway puts into its bearer tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInfo describes a stored bearer token. The client never holds the signing
// key, so signatures are not verified here: the gateway stays the judge of validity.
type TokenInfo struct {
	Opaque    bool
	UserID    string
	Role      string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var ErrEmptyToken = errors.New("empty token")

// Inspect decodes a token without verifying it. Anything that is not shaped
// like a JWT is reported as Opaque.
func Inspect(token string) (*TokenInfo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	if strings.Count(token, ".") != 2 {
		return &TokenInfo{Opaque: true}, nil
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	info := &TokenInfo{
		UserID: claims.UserID,
		Role:   claims.Role,
		Issuer: claims.Issuer,
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	return info, nil
}

// Expired reports whether the token carries an expiry that is already past.
// Opaque tokens never expire from the client's point of view.
func (i *TokenInfo) Expired(now time.Time) bool {
	if i == nil || i.Opaque || i.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(i.ExpiresAt)
}

// Usable is the restore-time check: non-empty, decodable, not expired.
func Usable(token string, now time.Time) error {
	info, err := Inspect(token)
	if err != nil {
		return err
	}
	if info.Expired(now) {
		return fmt.Errorf("token expired at %s", info.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}
