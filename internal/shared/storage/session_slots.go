package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const (
	keyUser  = "session/user"
	keyToken = "session/token"
)

// SessionSlots keeps the two session slots (profile JSON and bearer token).
// Both are written and removed in a single transaction so readers never see
// one without the other, unless an older build left partial material behind.
type SessionSlots struct {
	db *badger.DB
}

func NewSessionSlots(db *badger.DB) *SessionSlots {
	return &SessionSlots{db: db}
}

func (s *SessionSlots) Save(ctx context.Context, profile []byte, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(keyUser), profile); err != nil {
			return err
		}
		return txn.Set([]byte(keyToken), []byte(token))
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Load returns whatever is present. Missing slots come back empty, not as errors.
func (s *SessionSlots) Load(ctx context.Context) (profile []byte, token string, err error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	err = s.db.View(func(txn *badger.Txn) error {
		var e error
		if profile, e = get(txn, keyUser); e != nil {
			return e
		}
		raw, e := get(txn, keyToken)
		if e != nil {
			return e
		}
		token = string(raw)
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	return profile, token, nil
}

func (s *SessionSlots) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(keyUser)); err != nil {
			return err
		}
		return txn.Delete([]byte(keyToken))
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token is read by the gateway adapter before every request.
func (s *SessionSlots) Token() string {
	var token string
	_ = s.db.View(func(txn *badger.Txn) error {
		raw, err := get(txn, keyToken)
		token = string(raw)
		return err
	})
	return token
}

func get(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
