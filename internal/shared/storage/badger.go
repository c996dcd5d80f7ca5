package storage

import (
	"errors"
	"fmt"
	"os"

	"cabconnect/internal/shared/config"
	"cabconnect/internal/shared/logger"

	"github.com/dgraph-io/badger/v4"
)

// Open opens the client's embedded store: on disk under cfg.Dir, or in memory.
func Open(cfg config.StorageConfig, log *logger.Logger) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, errors.New("storage dir is required for persistent store")
		}
		if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
			return nil, fmt.Errorf("create storage dir %s: %w", cfg.Dir, err)
		}
		opts = badger.DefaultOptions(cfg.Dir).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	log.Info(logger.Entry{
		Action:  "storage_opened",
		Message: "session storage ready",
		Additional: map[string]any{
			"dir":       cfg.Dir,
			"in_memory": cfg.InMemory,
		},
	})
	return db, nil
}

func OpenInMemory() (*badger.DB, error) {
	return Open(config.StorageConfig{InMemory: true}, logger.Nop())
}

// Close closes the store and logs the outcome.
func Close(db *badger.DB, log *logger.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.Error(logger.Entry{
			Action:  "storage_close_failed",
			Message: err.Error(),
			Error:   &logger.ErrObj{Msg: err.Error()},
		})
		return
	}
	log.Debug(logger.Entry{Action: "storage_closed", Message: "session storage closed"})
}
