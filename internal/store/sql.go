package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

// SQLStore keeps chat configs in a chat_configs table (SQLite or Postgres).
type SQLStore struct {
	db *DB
}

func NewSQLStore(db *DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Get(ctx context.Context, key string) (*chatconfig.ChatConfig, error) {
	row := s.db.QueryRowContext(ctx, s.db.rebind(`SELECT algorithm, language, strictness, hide_details, stopped, whitelist, version, updated_at
		FROM chat_configs WHERE chat_key = ?`), key)

	cfg := &chatconfig.ChatConfig{Key: key}
	var words string
	err := row.Scan(&cfg.Algorithm, &cfg.Language, &cfg.Strictness, &cfg.HideDetails, &cfg.Stopped, &words, &cfg.Version, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat config %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(words), &cfg.Whitelist); err != nil {
		return nil, fmt.Errorf("decode whitelist %s: %w", key, err)
	}
	cfg.Whitelist = chatconfig.NormalizeWhitelist(cfg.Whitelist)
	return cfg, nil
}

func (s *SQLStore) Put(ctx context.Context, key string, cfg *chatconfig.ChatConfig) error {
	cfg.Key = key
	if err := cfg.Validate(); err != nil {
		return err
	}

	words, err := json.Marshal(chatconfig.NormalizeWhitelist(cfg.Whitelist))
	if err != nil {
		return fmt.Errorf("encode whitelist %s: %w", key, err)
	}
	now := time.Now().UTC()

	var res sql.Result
	if cfg.Version == 0 {
		res, err = s.db.ExecContext(ctx, s.db.rebind(`INSERT INTO chat_configs
			(chat_key, algorithm, language, strictness, hide_details, stopped, whitelist, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
			ON CONFLICT (chat_key) DO NOTHING`),
			key, int(cfg.Algorithm), int(cfg.Language), int(cfg.Strictness), cfg.HideDetails, cfg.Stopped, string(words), now)
	} else {
		res, err = s.db.ExecContext(ctx, s.db.rebind(`UPDATE chat_configs
			SET algorithm = ?, language = ?, strictness = ?, hide_details = ?, stopped = ?, whitelist = ?, version = version + 1, updated_at = ?
			WHERE chat_key = ? AND version = ?`),
			int(cfg.Algorithm), int(cfg.Language), int(cfg.Strictness), cfg.HideDetails, cfg.Stopped, string(words), now, key, cfg.Version)
	}
	if err != nil {
		return fmt.Errorf("put chat config %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put chat config %s: %w", key, err)
	}
	if n == 0 {
		return ErrVersionConflict
	}

	cfg.Version++
	cfg.UpdatedAt = now
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.rebind(`DELETE FROM chat_configs WHERE chat_key = ?`), key)
	if err != nil {
		return fmt.Errorf("delete chat config %s: %w", key, err)
	}
	return nil
}
