package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

// BigCacheStore keeps JSON-encoded sessions in bigcache. Expiry is handled by
// bigcache's life window and clean window, so it needs no external reaper.
// GetOrCreate returns a decoded copy; callers must Save after mutating it.
type BigCacheStore struct {
	cache     *bigcache.BigCache
	closeOnce sync.Once
	closeErr  error
}

// Compile-time check that BigCacheStore implements Store.
var _ Store = (*BigCacheStore)(nil)

// NewBigCacheStore creates a bigcache-backed session store. The store is
// closed when ctx is cancelled.
func NewBigCacheStore(ctx context.Context, opts ...Option) (*BigCacheStore, error) {
	cfg := buildOpts(opts)

	bc := bigcache.DefaultConfig(cfg.TTL)
	bc.CleanWindow = cleanWindowFor(cfg.TTL)
	bc.MaxEntriesInWindow = cfg.MaxSessions
	bc.Verbose = false

	cache, err := bigcache.NewBigCache(bc)
	if err != nil {
		slog.Error("NewBigCacheStore: failed to create cache", "error", err)
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	b := &BigCacheStore{cache: cache}
	go func() {
		<-ctx.Done()
		b.Close()
	}()
	slog.Debug("NewBigCacheStore invoked", "ttl", cfg.TTL, "cleanWindow", bc.CleanWindow)
	return b, nil
}

func cleanWindowFor(ttl time.Duration) time.Duration {
	w := ttl / 4
	if w < time.Second {
		w = time.Second
	}
	if w > 5*time.Minute {
		w = 5 * time.Minute
	}
	return w
}

func (b *BigCacheStore) GetOrCreate(userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	s, err := b.Get(userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	s = New(userID)
	if err := b.Save(s); err != nil {
		return nil, err
	}
	slog.Debug("BigCacheStore.GetOrCreate: created session", "userID", userID)
	return s, nil
}

func (b *BigCacheStore) Get(userID string) (*Session, error) {
	data, err := b.cache.Get(userID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", userID, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		slog.Warn("BigCacheStore.Get: dropping undecodable session", "userID", userID, "error", err)
		_ = b.cache.Delete(userID)
		return nil, ErrSessionNotFound
	}
	if s.Answers == nil {
		s.Answers = New(userID).Answers
	}
	return &s, nil
}

func (b *BigCacheStore) Save(s *Session) error {
	if s == nil || s.UserID == "" {
		return ErrEmptyUserID
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.UserID, err)
	}
	if err := b.cache.Set(s.UserID, data); err != nil {
		slog.Error("BigCacheStore.Save: write failed", "userID", s.UserID, "error", err)
		return fmt.Errorf("failed to write session %s: %w", s.UserID, err)
	}
	return nil
}

func (b *BigCacheStore) Delete(userID string) {
	if err := b.cache.Delete(userID); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		slog.Warn("BigCacheStore.Delete: delete failed", "userID", userID, "error", err)
	}
}

func (b *BigCacheStore) Len() int {
	return b.cache.Len()
}

// Close stops the cache's cleaner. It is safe to call more than once.
func (b *BigCacheStore) Close() error {
	b.closeOnce.Do(func() {
		b.closeErr = b.cache.Close()
	})
	return b.closeErr
}
