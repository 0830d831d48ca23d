package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BTreeMap/SwiftShowings/internal/botconfig"
	"github.com/BTreeMap/SwiftShowings/internal/flow"
	"github.com/BTreeMap/SwiftShowings/internal/genai"
	"github.com/BTreeMap/SwiftShowings/internal/messaging"
	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/scheduler"
	"github.com/BTreeMap/SwiftShowings/internal/session"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
)

// channel is one configured chat platform and the webhook surface it feeds.
type channel struct {
	svc     messaging.Service
	inner   messaging.Service
	profile ProfileSetter
	twilio  twiliochat.Channel
}

// Run wires every module together and serves HTTP until SIGINT or SIGTERM.
// Twilio is enabled when twOpts is non-empty.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, fbOpts []messenger.Option, twOpts []twiliochat.Option, apiOpts []Option) error {
	cfg := Opts{SessionBackend: SessionBackendMemory, MessengerEnabled: true}
	for _, opt := range apiOpts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultServerAddress
	}
	slog.Debug("Run: API options", "addr", cfg.Addr, "sessionBackend", cfg.SessionBackend,
		"outbox", cfg.OutboxEnabled, "messenger", cfg.MessengerEnabled, "twilio", len(twOpts) > 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := createStore(storeOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Run: failed to close store", "error", err)
		}
	}()

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := scheduler.NewHousekeeper(st, cfg.Retention).Schedule(sched, cfg.HousekeepingSchedule); err != nil {
		return fmt.Errorf("failed to schedule housekeeping: %w", err)
	}

	content, err := botconfig.Load(cfg.BotConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load bot content: %w", err)
	}
	holder := botconfig.NewHolder(content)
	if cfg.BotConfigPath != "" {
		go func() {
			if err := botconfig.Watch(ctx, cfg.BotConfigPath, holder); err != nil {
				slog.Error("Run: bot content watcher stopped", "path", cfg.BotConfigPath, "error", err)
			}
		}()
	}

	sessions, err := createSessionStore(ctx, cfg)
	if err != nil {
		return err
	}

	persister := store.NewRecordPersister(st)
	dispatcher := flow.NewDispatcher(sessions, flow.NewCatalog(), flow.WithPersister(persister))

	var assistant *genai.Assistant
	if gen, err := genai.NewClient(genaiOpts...); err != nil {
		slog.Warn("Run: assistant disabled", "error", err)
	} else {
		assistant = genai.NewAssistant(gen,
			genai.WithSystemPrompt(content.AssistantPrompt),
			genai.WithHistoryBounds(cfg.SessionTTL, cfg.SessionMax),
		)
		slog.Info("Run: assistant enabled", "model", gen.Model())
	}

	channels, err := createChannels(cfg, fbOpts, twOpts)
	if err != nil {
		return err
	}
	if len(channels) == 0 {
		return errors.New("no chat channel configured: enable Messenger or set Twilio credentials")
	}

	if cfg.OutboxEnabled {
		if err := enableOutbox(ctx, st, channels); err != nil {
			return err
		}
	}

	serverOpts := []ServerOption{WithSessionCount(sessions.Len)}
	if assistant != nil {
		serverOpts = append(serverOpts, WithHistoryForgetter(assistant))
	}
	for _, ch := range channels {
		if err := ch.svc.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s service: %w", ch.svc.Platform(), err)
		}
		handlerOpts := []messaging.ResponseHandlerOption{
			messaging.WithDedup(st),
			messaging.WithConversationLogger(persister),
			messaging.WithContent(holder.Current),
			messaging.WithThreadBounds(cfg.SessionTTL, cfg.SessionMax),
		}
		if assistant != nil {
			handlerOpts = append(handlerOpts, messaging.WithAssistant(assistant))
		}
		messaging.NewResponseHandler(ch.svc, dispatcher, handlerOpts...).Start(ctx)

		if ch.profile != nil {
			serverOpts = append(serverOpts, WithMessengerService(ch.svc, ch.profile, cfg.VerifyToken))
		} else {
			serverOpts = append(serverOpts, WithTwilioService(ch.svc, ch.twilio))
		}
	}

	server := NewServer(st, dispatcher, holder, serverOpts...)
	srv := &http.Server{
		Addr:        cfg.Addr,
		Handler:     server.Routes(),
		ReadTimeout: DefaultReadTimeout,
		IdleTimeout: DefaultIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("SwiftShowings API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Run: shutting down gracefully")
	case err := <-errCh:
		if err != nil {
			stop()
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Run: server forced to shutdown", "error", err)
	}
	for _, ch := range channels {
		if err := ch.svc.Stop(); err != nil {
			slog.Error("Run: failed to stop service", "platform", ch.svc.Platform(), "error", err)
		}
	}
	slog.Info("Run: server stopped")
	return nil
}

// createStore picks the store backend from the DSN: PostgreSQL, SQLite, or
// in-memory when no DSN is set.
func createStore(opts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("createStore: no DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(cfg.DSN) == "postgres" {
		slog.Info("createStore: using PostgreSQL store")
		st, err := store.NewPostgresStore(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		return st, nil
	}
	slog.Info("createStore: using SQLite store", "path", cfg.DSN)
	st, err := store.NewSQLiteStore(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite store: %w", err)
	}
	return st, nil
}

// createSessionStore builds the configured session backend. The memory
// backend gets a reaper; bigcache expires entries on its own.
func createSessionStore(ctx context.Context, cfg Opts) (session.Store, error) {
	opts := []session.Option{session.WithTTL(cfg.SessionTTL), session.WithMaxSessions(cfg.SessionMax)}
	switch cfg.SessionBackend {
	case "", SessionBackendMemory:
		st := session.NewMemoryStore(opts...)
		session.StartReaper(ctx, st, session.DefaultReapInterval)
		return st, nil
	case SessionBackendBigCache:
		st, err := session.NewBigCacheStore(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func createChannels(cfg Opts, fbOpts []messenger.Option, twOpts []twiliochat.Option) ([]channel, error) {
	var out []channel
	if cfg.MessengerEnabled {
		client, err := messenger.NewClient(fbOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Messenger client: %w", err)
		}
		svc := messaging.NewMessengerService(client, client)
		out = append(out, channel{svc: svc, inner: svc, profile: client})
		slog.Info("createChannels: Messenger enabled")
	}
	if len(twOpts) > 0 {
		client, err := twiliochat.NewClient(twOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Twilio client: %w", err)
		}
		svc := messaging.NewTwilioService(client, client.Channel())
		out = append(out, channel{svc: svc, inner: svc, twilio: client.Channel()})
		slog.Info("createChannels: Twilio enabled", "channel", client.Channel())
	}
	return out, nil
}

// enableOutbox wraps every channel in an OutboxService and starts the sender
// that drains the outbox.
func enableOutbox(ctx context.Context, st store.Store, channels []channel) error {
	repo, ok := st.(store.OutboxRepo)
	if !ok {
		return errors.New("outbox requires a SQLite or PostgreSQL store")
	}
	inner := make([]messaging.Service, 0, len(channels))
	for i := range channels {
		inner = append(inner, channels[i].inner)
		channels[i].svc = messaging.NewOutboxService(channels[i].inner, repo)
	}
	sender := store.NewOutboxSender(repo, messaging.NewOutboxSendFunc(inner...), store.DefaultOutboxPollInterval)
	if err := sender.RecoverStaleMessages(); err != nil {
		slog.Error("enableOutbox: failed to recover stale messages", "error", err)
	}
	go sender.Run(ctx)
	slog.Info("enableOutbox: outbox delivery enabled", "channels", len(channels))
	return nil
}
