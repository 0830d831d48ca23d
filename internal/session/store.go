package session

import (
	"container/list"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Default bounds for session stores.
const (
	// DefaultTTL is how long an untouched session is kept.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxSessions caps the number of sessions held in memory.
	DefaultMaxSessions = 10000
)

var (
	// ErrEmptyUserID is returned when a session is requested without a user id.
	ErrEmptyUserID = errors.New("user id cannot be empty")
	// ErrSessionNotFound is returned when a session does not exist.
	ErrSessionNotFound = errors.New("session not found")
)

// Store holds one session per user id.
type Store interface {
	// GetOrCreate returns the session for userID, creating an idle one on first contact.
	GetOrCreate(userID string) (*Session, error)
	// Get returns the session for userID without creating it.
	Get(userID string) (*Session, error)
	// Save persists mutations made to a session returned by GetOrCreate.
	Save(s *Session) error
	// Delete drops the session for userID.
	Delete(userID string)
	// Len returns the number of sessions currently held.
	Len() int
}

// Opts holds configuration options for session stores.
type Opts struct {
	TTL         time.Duration
	MaxSessions int
	Clock       func() time.Time
}

// Option defines a configuration option for session stores.
type Option func(*Opts)

// WithTTL sets how long an untouched session survives.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithMaxSessions caps the number of sessions kept in memory.
func WithMaxSessions(n int) Option {
	return func(o *Opts) { o.MaxSessions = n }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) { o.Clock = now }
}

func buildOpts(opts []Option) Opts {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return cfg
}

// MemoryStore keeps sessions in an LRU list bounded by TTL and size.
// Repeated GetOrCreate calls for the same user return the same pointer.
type MemoryStore struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	lru *list.List               // front=MRU
	m   map[string]*list.Element // user id -> element(Value=*entry)
}

type entry struct {
	s        *Session
	lastUsed time.Time
}

// Compile-time check that MemoryStore implements Store and Reaper.
var (
	_ Store  = (*MemoryStore)(nil)
	_ Reaper = (*MemoryStore)(nil)
)

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := buildOpts(opts)
	slog.Debug("NewMemoryStore invoked", "ttl", cfg.TTL, "maxSessions", cfg.MaxSessions)
	return &MemoryStore{
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		now:         cfg.Clock,
		lru:         list.New(),
		m:           make(map[string]*list.Element),
	}
}

func (st *MemoryStore) GetOrCreate(userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	if e := st.m[userID]; e != nil {
		it := e.Value.(*entry)
		it.lastUsed = now
		st.lru.MoveToFront(e)
		return it.s, nil
	}

	s := New(userID)
	st.m[userID] = st.lru.PushFront(&entry{s: s, lastUsed: now})
	st.evictOverLimitLocked()
	slog.Debug("MemoryStore.GetOrCreate: created session", "userID", userID, "size", st.lru.Len())
	return s, nil
}

func (st *MemoryStore) Get(userID string) (*Session, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)
	e := st.m[userID]
	if e == nil {
		return nil, ErrSessionNotFound
	}
	return e.Value.(*entry).s, nil
}

// Save refreshes the session's recency. A session evicted while it was being
// mutated is reinserted.
func (st *MemoryStore) Save(s *Session) error {
	if s == nil || s.UserID == "" {
		return ErrEmptyUserID
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	if e := st.m[s.UserID]; e != nil {
		it := e.Value.(*entry)
		it.s = s
		it.lastUsed = now
		st.lru.MoveToFront(e)
		return nil
	}
	st.m[s.UserID] = st.lru.PushFront(&entry{s: s, lastUsed: now})
	st.evictOverLimitLocked()
	return nil
}

func (st *MemoryStore) Delete(userID string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if e := st.m[userID]; e != nil {
		st.deleteElemLocked(e)
	}
}

func (st *MemoryStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lru.Len()
}

// Reap removes sessions untouched for longer than the TTL and returns how many were dropped.
func (st *MemoryStore) Reap(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.evictExpiredLocked(now)
}

func (st *MemoryStore) evictExpiredLocked(now time.Time) int {
	evicted := 0
	for e := st.lru.Back(); e != nil; {
		prev := e.Prev()
		if now.Sub(e.Value.(*entry).lastUsed) <= st.ttl {
			break
		}
		st.deleteElemLocked(e)
		evicted++
		e = prev
	}
	return evicted
}

func (st *MemoryStore) evictOverLimitLocked() {
	for st.lru.Len() > st.maxSessions {
		e := st.lru.Back()
		if e == nil {
			return
		}
		slog.Debug("MemoryStore: evicting least recently used session", "userID", e.Value.(*entry).s.UserID)
		st.deleteElemLocked(e)
	}
}

func (st *MemoryStore) deleteElemLocked(e *list.Element) {
	delete(st.m, e.Value.(*entry).s.UserID)
	st.lru.Remove(e)
}
