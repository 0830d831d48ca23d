package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryStore_GetOrCreateIdempotent(t *testing.T) {
	st := NewMemoryStore()

	s1, err := st.GetOrCreate("u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	s2, err := st.GetOrCreate("u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if s1 != s2 {
		t.Error("expected the same session pointer on repeated calls")
	}
	if s1.ActiveFlow != s2.ActiveFlow || s1.Step != s2.Step || len(s1.Answers) != len(s2.Answers) {
		t.Error("expected identical field values")
	}
	if st.Len() != 1 {
		t.Errorf("expected 1 session, got %d", st.Len())
	}
}

func TestMemoryStore_EmptyUserID(t *testing.T) {
	st := NewMemoryStore()
	if _, err := st.GetOrCreate(""); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("expected ErrEmptyUserID, got %v", err)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	st := NewMemoryStore()
	if _, err := st.Get("nobody"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	clock := newFakeClock()
	st := NewMemoryStore(WithTTL(time.Minute), WithClock(clock.Now))

	if _, err := st.GetOrCreate("u1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	clock.Advance(2 * time.Minute)

	if n := st.Reap(clock.Now()); n != 1 {
		t.Errorf("expected 1 reaped session, got %d", n)
	}
	if st.Len() != 0 {
		t.Errorf("expected empty store, got %d", st.Len())
	}
}

func TestMemoryStore_TouchKeepsAlive(t *testing.T) {
	clock := newFakeClock()
	st := NewMemoryStore(WithTTL(time.Minute), WithClock(clock.Now))

	s, _ := st.GetOrCreate("u1")
	clock.Advance(45 * time.Second)
	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	clock.Advance(45 * time.Second)

	if n := st.Reap(clock.Now()); n != 0 {
		t.Errorf("expected recently saved session to survive, reaped %d", n)
	}
}

func TestMemoryStore_MaxSessionsAndLRU(t *testing.T) {
	clock := newFakeClock()
	st := NewMemoryStore(WithMaxSessions(2), WithClock(clock.Now))

	st.GetOrCreate("u1")
	clock.Advance(time.Second)
	st.GetOrCreate("u2")
	clock.Advance(time.Second)

	// Touch u1 so u2 becomes least recently used.
	st.GetOrCreate("u1")
	clock.Advance(time.Second)
	st.GetOrCreate("u3")

	if _, err := st.Get("u2"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("expected u2 evicted as LRU")
	}
	if _, err := st.Get("u1"); err != nil {
		t.Error("expected u1 retained")
	}
	if _, err := st.Get("u3"); err != nil {
		t.Error("expected u3 present")
	}
}

func TestMemoryStore_SaveReinsertsEvicted(t *testing.T) {
	st := NewMemoryStore()
	s, _ := st.GetOrCreate("u1")
	s.SetFlow(models.FlowFindHome, 1)
	st.Delete("u1")

	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Get("u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ActiveFlow != models.FlowFindHome {
		t.Errorf("expected reinserted session, got %+v", got)
	}
}

func TestBigCacheStore_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := NewBigCacheStore(ctx, WithTTL(time.Hour))
	if err != nil {
		t.Fatalf("NewBigCacheStore: %v", err)
	}
	defer st.Close()

	s, err := st.GetOrCreate("u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !s.IsIdle() {
		t.Fatal("expected idle session")
	}

	s.SetFlow(models.FlowFindHomeBuy, 2)
	s.StoreAnswer(models.KeyHomeType, "House")
	if err := st.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := st.GetOrCreate("u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if again.ActiveFlow != models.FlowFindHomeBuy || again.Step != 2 {
		t.Errorf("unexpected session state: %+v", again)
	}
	if again.AnswerOr(models.KeyHomeType, "") != "House" {
		t.Errorf("expected stored answer, got %v", again.Answers)
	}

	st.Delete("u1")
	if _, err := st.Get("u1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestBigCacheStore_CloseOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st, err := NewBigCacheStore(ctx)
	if err != nil {
		t.Fatalf("NewBigCacheStore: %v", err)
	}
	if _, err := st.GetOrCreate("u1"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	cancel()
	// Close after cancellation must not double-close the cache.
	for i := 0; i < 2; i++ {
		if err := st.Close(); err != nil {
			t.Errorf("Close #%d: %v", i+1, err)
		}
	}
}

func TestLocker_SerializesPerUser(t *testing.T) {
	l := NewLocker()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("u1")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50 serialized increments, got %d", counter)
	}
	if l.Held() != 0 {
		t.Errorf("expected all locks released, %d still held", l.Held())
	}
}

func TestLocker_IndependentUsers(t *testing.T) {
	l := NewLocker()
	unlock1 := l.Lock("u1")
	defer unlock1()

	done := make(chan struct{})
	go func() {
		unlock2 := l.Lock("u2")
		unlock2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock for u2 blocked on u1")
	}
}

func TestStartReaper_StopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	st := NewMemoryStore(WithTTL(time.Nanosecond), WithClock(clock.Now))
	st.GetOrCreate("u1")
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	StartReaper(ctx, st, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for st.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if st.Len() != 0 {
		t.Errorf("expected reaper to evict expired session, %d left", st.Len())
	}
}
