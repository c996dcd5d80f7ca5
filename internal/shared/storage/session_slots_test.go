package storage

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"
)

func newSlots(t *testing.T) (*SessionSlots, *badger.DB) {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, logger.Nop()) })
	return NewSessionSlots(db), db
}

func TestSessionSlotsRoundTrip(t *testing.T) {
	slots, _ := newSlots(t)
	ctx := context.Background()

	profile, token, err := slots.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile)
	assert.Empty(t, token)

	require.NoError(t, slots.Save(ctx, []byte(`{"username":"alice","userType":"RIDER"}`), "tok-1"))
	profile, token, err = slots.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"username":"alice","userType":"RIDER"}`, string(profile))
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "tok-1", slots.Token())

	require.NoError(t, slots.Clear(ctx))
	profile, token, err = slots.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, profile)
	assert.Empty(t, token)
	assert.Empty(t, slots.Token())
}

func TestSessionSlotsPartialMaterialIsVisible(t *testing.T) {
	slots, db := newSlots(t)
	require.NoError(t, db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyToken), []byte("orphan"))
	}))

	profile, token, err := slots.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profile)
	assert.Equal(t, "orphan", token)
}

func TestSessionSlotsCancelledContext(t *testing.T) {
	slots, _ := newSlots(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, slots.Save(ctx, []byte("{}"), "x"), context.Canceled)
}

func TestOpenPersistentRequiresDir(t *testing.T) {
	_, err := Open(config.StorageConfig{}, logger.Nop())
	assert.Error(t, err)

	db, err := Open(config.StorageConfig{Dir: t.TempDir()}, logger.Nop())
	require.NoError(t, err)
	Close(db, logger.Nop())
}
