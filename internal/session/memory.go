package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"task-manager/internal/models"

	"github.com/allegro/bigcache/v3"
)

type memStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewMemoryStore returns a process-local store. Entries are evicted by the
// cache after ttl; Get also checks the recorded expiry since eviction is lazy.
func NewMemoryStore(ctx context.Context, ttl time.Duration) (Store, error) {
	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.MaxEntriesInWindow = 10000
	cfg.MaxEntrySize = 256
	cfg.CleanWindow = cleanWindow(ttl)
	cfg.Verbose = false
	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session: create cache: %w", err)
	}
	return &memStore{cache: cache, now: time.Now}, nil
}

func cleanWindow(ttl time.Duration) time.Duration {
	w := ttl / 2
	if w < time.Second {
		w = time.Second
	}
	if w > 5*time.Minute {
		w = 5 * time.Minute
	}
	return w
}

func (m *memStore) Create(ctx context.Context, s *models.Session) error {
	if s.Expired(m.now()) {
		return ErrExpired
	}
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.cache.Set(s.Token, buf)
}

func (m *memStore) Get(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	buf, err := m.cache.Get(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	var s models.Session
	if err := json.Unmarshal(buf, &s); err != nil {
		return nil, err
	}
	if s.Expired(m.now()) {
		_ = m.cache.Delete(token)
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memStore) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := m.cache.Delete(token)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}
