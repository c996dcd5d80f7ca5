package out

import "context"

// SessionStorage: два слота сессии: профиль (JSON) и токен.
// Save and Clear touch both slots atomically.
type SessionStorage interface {
	Save(ctx context.Context, profile []byte, token string) error
	Load(ctx context.Context) (profile []byte, token string, err error)
	Clear(ctx context.Context) error
}
