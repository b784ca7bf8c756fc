// Package store persists chat configurations behind a small key/record repository.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

var (
	ErrNotFound        = errors.New("store: chat config not found")
	ErrVersionConflict = errors.New("store: chat config version conflict")
)

// Repository is the persistence contract for chat configurations.
//
// Put uses optimistic concurrency: a record with Version 0 is inserted, any
// other record only replaces the stored one when versions match. On success
// the record's Version and UpdatedAt are bumped in place.
type Repository interface {
	Get(ctx context.Context, key string) (*chatconfig.ChatConfig, error)
	Put(ctx context.Context, key string, cfg *chatconfig.ChatConfig) error
	Delete(ctx context.Context, key string) error
}

// GetOrCreate returns the stored config for key, storing defaults when it is missing.
// created reports whether this call inserted the record.
func GetOrCreate(ctx context.Context, repo Repository, key string) (cfg *chatconfig.ChatConfig, created bool, err error) {
	cfg, err = repo.Get(ctx, key)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	cfg = chatconfig.Default(key)
	err = repo.Put(ctx, key, cfg)
	if errors.Is(err, ErrVersionConflict) {
		// Someone else inserted it first.
		cfg, err = repo.Get(ctx, key)
		return cfg, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("create chat config %s: %w", key, err)
	}
	return cfg, true, nil
}

// Open builds the repository for the configured driver.
func Open(driver, dsn string) (Repository, func() error, error) {
	switch driver {
	case "memory":
		return NewMemoryStore(), func() error { return nil }, nil
	case "sqlite", "sqlite3", "postgres":
		db, err := NewDB(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := db.InitSchema(); err != nil {
			db.Close()
			return nil, nil, err
		}
		return NewSQLStore(db), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
