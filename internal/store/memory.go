package store

import (
	"context"
	"sync"
	"time"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

// MemoryStore is a process-local Repository. Records are cloned on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*chatconfig.ChatConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]*chatconfig.ChatConfig)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (*chatconfig.ChatConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg.Clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, cfg *chatconfig.ChatConfig) error {
	cfg.Key = key
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.configs[key]
	switch {
	case !ok && cfg.Version != 0:
		return ErrVersionConflict
	case ok && current.Version != cfg.Version:
		return ErrVersionConflict
	}

	cfg.Version++
	cfg.UpdatedAt = time.Now().UTC()
	cfg.Whitelist = chatconfig.NormalizeWhitelist(cfg.Whitelist)
	m.configs[key] = cfg.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, key)
	return nil
}
