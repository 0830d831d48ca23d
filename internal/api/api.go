// Package api provides the HTTP server and application wiring for SwiftShowings.
//
// It exposes the Messenger and Twilio webhooks, Messenger profile setup, and
// read-only views of persisted records and live sessions.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/botconfig"
	"github.com/BTreeMap/SwiftShowings/internal/flow"
	"github.com/BTreeMap/SwiftShowings/internal/messaging"
	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/session"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server defaults.
const (
	// DefaultServerAddress is the listen address when none is configured.
	DefaultServerAddress = ":8080"
	// DefaultShutdownTimeout bounds graceful shutdown.
	DefaultShutdownTimeout = 10 * time.Second
	// DefaultReadTimeout bounds reading a webhook request.
	DefaultReadTimeout = 30 * time.Second
	// DefaultIdleTimeout bounds keep-alive connections.
	DefaultIdleTimeout = 120 * time.Second
	// MaxWebhookBodyBytes caps webhook payload size.
	MaxWebhookBodyBytes = 1 << 20
	// WebhookGreeting is returned by GET /webhook without verification parameters.
	WebhookGreeting = "Hello, this is the Swift Showings webhook server."
	// EventReceived acknowledges every Messenger webhook POST.
	EventReceived = "EVENT_RECEIVED"
)

// Session backends.
const (
	SessionBackendMemory   = "memory"
	SessionBackendBigCache = "bigcache"
)

// Opts holds configuration options for the API server.
type Opts struct {
	Addr                 string
	VerifyToken          string
	BotConfigPath        string
	SessionBackend       string
	SessionTTL           time.Duration
	SessionMax           int
	OutboxEnabled        bool
	MessengerEnabled     bool
	HousekeepingSchedule string
	Retention            time.Duration
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the Messenger webhook verify token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithBotConfigPath sets the YAML file holding bot content. The file is
// watched and reloaded on change.
func WithBotConfigPath(path string) Option {
	return func(o *Opts) { o.BotConfigPath = path }
}

// WithSessionBackend selects "memory" or "bigcache".
func WithSessionBackend(backend string) Option {
	return func(o *Opts) { o.SessionBackend = backend }
}

// WithSessionTTL sets how long an idle session survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.SessionTTL = ttl }
}

// WithSessionMax caps the number of live sessions.
func WithSessionMax(n int) Option {
	return func(o *Opts) { o.SessionMax = n }
}

// WithOutbox routes replies through the durable outbox.
func WithOutbox(enabled bool) Option {
	return func(o *Opts) { o.OutboxEnabled = enabled }
}

// WithMessengerEnabled turns the Messenger channel on or off. When on, a
// missing page access token is a startup error.
func WithMessengerEnabled(enabled bool) Option {
	return func(o *Opts) { o.MessengerEnabled = enabled }
}

// WithHousekeeping sets the cron schedule and retention window for pruning
// dedup and outbox rows. Empty or zero values keep the defaults.
func WithHousekeeping(schedule string, retention time.Duration) Option {
	return func(o *Opts) {
		o.HousekeepingSchedule = schedule
		o.Retention = retention
	}
}

// ProfileSetter pushes the Messenger profile (get started, greeting, menu).
type ProfileSetter interface {
	SetupProfile(ctx context.Context, s messenger.ProfileSettings) error
}

// Sessions is the session surface the server inspects and resets.
type Sessions interface {
	Snapshot(userID string) (*session.Session, error)
	Reset(userID string)
}

var _ Sessions = (*flow.Dispatcher)(nil)

// HistoryForgetter drops a user's assistant history.
type HistoryForgetter interface {
	Forget(userID string)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	records     store.RecordRepo
	sessions    Sessions
	sessionLen  func() int
	content     *botconfig.Holder
	verifyToken string

	messenger     messaging.Service
	profile       ProfileSetter
	twilio        messaging.Service
	twilioChannel twiliochat.Channel
	history       HistoryForgetter
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithMessengerService accepts Messenger webhooks into svc. profile may be
// nil, in which case POST /setup is unavailable.
func WithMessengerService(svc messaging.Service, profile ProfileSetter, verifyToken string) ServerOption {
	return func(s *Server) {
		s.messenger = svc
		s.profile = profile
		s.verifyToken = verifyToken
	}
}

// WithTwilioService accepts Twilio webhooks for channel ch into svc.
func WithTwilioService(svc messaging.Service, ch twiliochat.Channel) ServerOption {
	return func(s *Server) {
		s.twilio = svc
		s.twilioChannel = ch
	}
}

// WithHistoryForgetter clears assistant history when a session is reset.
func WithHistoryForgetter(h HistoryForgetter) ServerOption {
	return func(s *Server) { s.history = h }
}

// WithSessionCount reports the number of live sessions on /health.
func WithSessionCount(fn func() int) ServerOption {
	return func(s *Server) { s.sessionLen = fn }
}

// NewServer creates a Server over records, sessions and content.
func NewServer(records store.RecordRepo, sessions Sessions, content *botconfig.Holder, opts ...ServerOption) *Server {
	s := &Server{
		records:  records,
		sessions: sessions,
		content:  content,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))

	r.Get("/health", s.healthHandler)

	r.Get("/webhook", s.verifyHandler)
	r.Post("/webhook", s.messengerWebhookHandler)
	r.Post("/twilio/webhook", s.twilioWebhookHandler)
	r.Post("/setup", s.setupHandler)

	r.Get("/records", s.recordsHandler)
	r.Route("/sessions/{userID}", func(r chi.Router) {
		r.Get("/", s.getSessionHandler)
		r.Delete("/", s.resetSessionHandler)
	})

	return r
}
