package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
)

// DefaultPersistTimeout bounds a single Persister call.
const DefaultPersistTimeout = 10 * time.Second

// Persister stores the fields of a completed flow. Implementations append;
// they never update earlier rows.
type Persister interface {
	Persist(ctx context.Context, kind models.EventKind, fields []string) error
}

// DispatcherOpts holds optional dispatcher settings.
type DispatcherOpts struct {
	Persister      Persister
	PersistTimeout time.Duration
	Locker         *session.Locker
	Clock          func() time.Time
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*DispatcherOpts)

// WithPersister sets where completed flows are recorded.
func WithPersister(p Persister) DispatcherOption {
	return func(o *DispatcherOpts) { o.Persister = p }
}

// WithPersistTimeout overrides DefaultPersistTimeout.
func WithPersistTimeout(d time.Duration) DispatcherOption {
	return func(o *DispatcherOpts) { o.PersistTimeout = d }
}

// WithLocker shares a per-user Locker with other components.
func WithLocker(l *session.Locker) DispatcherOption {
	return func(o *DispatcherOpts) { o.Locker = l }
}

// WithDispatcherClock overrides time.Now for record timestamps.
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(o *DispatcherOpts) { o.Clock = now }
}

// Dispatcher is the single entry point for advancing user sessions. Every
// operation holds the user's lock for its whole read-modify-write cycle.
type Dispatcher struct {
	store          session.Store
	registry       *Registry
	persister      Persister
	persistTimeout time.Duration
	locker         *session.Locker
	now            func() time.Time
}

// NewDispatcher creates a Dispatcher over store and registry.
func NewDispatcher(store session.Store, registry *Registry, opts ...DispatcherOption) *Dispatcher {
	cfg := DispatcherOpts{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}
	if cfg.Locker == nil {
		cfg.Locker = session.NewLocker()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Persister == nil {
		slog.Warn("NewDispatcher: no persister configured, completed flows will not be recorded")
	}
	return &Dispatcher{
		store:          store,
		registry:       registry,
		persister:      cfg.Persister,
		persistTimeout: cfg.PersistTimeout,
		locker:         cfg.Locker,
		now:            cfg.Clock,
	}
}

// Process advances the user's active flow with message. It returns false when
// the user has no active flow, in which case nothing is changed.
func (d *Dispatcher) Process(ctx context.Context, userID, userName, message string) (models.Reply, bool) {
	unlock := d.locker.Lock(userID)
	defer unlock()

	s, err := d.store.GetOrCreate(userID)
	if err != nil {
		slog.Error("Dispatcher.Process: failed to load session", "userID", userID, "error", err)
		return models.Reply{}, false
	}
	if s.IsIdle() {
		return models.Reply{}, false
	}

	h, err := d.registry.MustGet(s.ActiveFlow)
	if err != nil {
		slog.Error("Dispatcher.Process: active flow has no handler, resetting", "userID", userID, "flow", s.ActiveFlow, "error", err)
		s.Reset()
		d.save(s)
		return models.Reply{}, false
	}

	slog.Debug("Dispatcher.Process", "userID", userID, "flow", s.ActiveFlow, "step", s.Step)
	out := h.Step(s, message)
	return d.finish(ctx, s, userName, out)
}

// ForceStart unconditionally enters flowID at step 1, discarding any flow in
// progress along with its answers, and returns the flow's opening prompt.
func (d *Dispatcher) ForceStart(ctx context.Context, userID string, flowID models.FlowID) (models.Reply, error) {
	h, err := d.registry.MustGet(flowID)
	if err != nil {
		return models.Reply{}, err
	}

	unlock := d.locker.Lock(userID)
	defer unlock()

	s, err := d.store.GetOrCreate(userID)
	if err != nil {
		slog.Error("Dispatcher.ForceStart: failed to load session", "userID", userID, "error", err)
		return models.Reply{}, err
	}
	if !s.IsIdle() {
		slog.Info("Dispatcher.ForceStart: discarding in-progress flow",
			"userID", userID, "flow", s.ActiveFlow, "step", s.Step, "next", flowID)
	}

	s.Reset()
	out := h.Start(s)
	reply, _ := d.finish(ctx, s, "", out)
	return reply, nil
}

// StartFindHome force-starts the Find Home router.
func (d *Dispatcher) StartFindHome(ctx context.Context, userID string) (models.Reply, error) {
	return d.ForceStart(ctx, userID, models.FlowFindHome)
}

// StartGetHelp force-starts the Get Help router.
func (d *Dispatcher) StartGetHelp(ctx context.Context, userID string) (models.Reply, error) {
	return d.ForceStart(ctx, userID, models.FlowGetHelp)
}

// StartSaveMoney force-starts the Save Money router.
func (d *Dispatcher) StartSaveMoney(ctx context.Context, userID string) (models.Reply, error) {
	return d.ForceStart(ctx, userID, models.FlowSaveMoney)
}

// ProcessCategory enters routerID and immediately feeds it label, as if the
// user had chosen that category from the router's prompt.
func (d *Dispatcher) ProcessCategory(ctx context.Context, userID, userName string, routerID models.FlowID, label string) (models.Reply, error) {
	h, err := d.registry.MustGet(routerID)
	if err != nil {
		return models.Reply{}, err
	}

	unlock := d.locker.Lock(userID)
	defer unlock()

	s, err := d.store.GetOrCreate(userID)
	if err != nil {
		slog.Error("Dispatcher.ProcessCategory: failed to load session", "userID", userID, "error", err)
		return models.Reply{}, err
	}
	if !s.IsIdle() && s.ActiveFlow != routerID {
		slog.Info("Dispatcher.ProcessCategory: discarding in-progress flow",
			"userID", userID, "flow", s.ActiveFlow, "step", s.Step, "router", routerID)
	}

	s.Reset()
	h.Start(s)
	out := h.Step(s, label)
	reply, _ := d.finish(ctx, s, userName, out)
	return reply, nil
}

// Snapshot returns a copy of the user's session.
func (d *Dispatcher) Snapshot(userID string) (*session.Session, error) {
	unlock := d.locker.Lock(userID)
	defer unlock()

	s, err := d.store.Get(userID)
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Reset returns the user's session to idle. Resetting an unknown user is not
// an error.
func (d *Dispatcher) Reset(userID string) {
	unlock := d.locker.Lock(userID)
	defer unlock()

	s, err := d.store.Get(userID)
	if err != nil {
		return
	}
	s.Reset()
	d.save(s)
	slog.Info("Dispatcher.Reset: session reset", "userID", userID)
}

// finish persists a completion, resets the session if the flow ended and
// saves it. Callers hold the user's lock.
func (d *Dispatcher) finish(ctx context.Context, s *session.Session, userName string, out Outcome) (models.Reply, bool) {
	if out.Completion != nil {
		d.persist(ctx, s.UserID, userName, *out.Completion)
		s.Reset()
	}
	d.save(s)
	return out.Reply, out.Handled
}

func (d *Dispatcher) persist(ctx context.Context, userID, userName string, c Completion) {
	if d.persister == nil {
		return
	}
	fields := BuildFields(c, userID, userName, d.now())

	// Detached from the inbound request so a client disconnect cannot drop the row.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.persistTimeout)
	defer cancel()

	if err := d.persister.Persist(pctx, c.Kind, fields); err != nil {
		slog.Error("Dispatcher.persist: failed to record completed flow",
			"userID", userID, "flow", c.Flow, "kind", c.Kind, "error", err)
		return
	}
	slog.Info("Dispatcher.persist: recorded completed flow", "userID", userID, "flow", c.Flow, "kind", c.Kind)
}

func (d *Dispatcher) save(s *session.Session) {
	if err := d.store.Save(s); err != nil {
		slog.Error("Dispatcher.save: failed to save session", "userID", s.UserID, "error", err)
	}
}
