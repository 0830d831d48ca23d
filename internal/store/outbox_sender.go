// Package store provides the OutboxSender for delivering queued replies.
package store

import (
	"context"
	"log/slog"
	"time"
)

// Outbox sender defaults.
const (
	DefaultOutboxPollInterval   = 5 * time.Second
	DefaultOutboxStaleThreshold = 5 * time.Minute
	DefaultOutboxClaimLimit     = 10
	DefaultOutboxMaxAttempts    = 6
	outboxBaseBackoff           = 10 * time.Second
)

// OutboxSendFunc is the callback that performs the actual message send.
// It receives the outbox message and should return an error if sending failed.
type OutboxSendFunc func(ctx context.Context, msg OutboxMessage) error

// OutboxSender periodically claims due outbox messages and attempts to send them.
type OutboxSender struct {
	repo           OutboxRepo
	sendFunc       OutboxSendFunc
	pollInterval   time.Duration
	staleThreshold time.Duration
	claimLimit     int
	maxAttempts    int
}

// OutboxSenderOption configures an OutboxSender.
type OutboxSenderOption func(*OutboxSender)

// WithOutboxMaxAttempts sets how many failed sends a message tolerates before
// it is marked failed.
func WithOutboxMaxAttempts(n int) OutboxSenderOption {
	return func(s *OutboxSender) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithOutboxClaimLimit sets how many messages a single poll may claim.
func WithOutboxClaimLimit(n int) OutboxSenderOption {
	return func(s *OutboxSender) {
		if n > 0 {
			s.claimLimit = n
		}
	}
}

// WithOutboxStaleThreshold sets how long a message may sit in sending before
// RecoverStaleMessages requeues it.
func WithOutboxStaleThreshold(d time.Duration) OutboxSenderOption {
	return func(s *OutboxSender) {
		if d > 0 {
			s.staleThreshold = d
		}
	}
}

// NewOutboxSender creates a new OutboxSender.
func NewOutboxSender(repo OutboxRepo, sendFunc OutboxSendFunc, pollInterval time.Duration, opts ...OutboxSenderOption) *OutboxSender {
	if pollInterval <= 0 {
		pollInterval = DefaultOutboxPollInterval
	}
	s := &OutboxSender{
		repo:           repo,
		sendFunc:       sendFunc,
		pollInterval:   pollInterval,
		staleThreshold: DefaultOutboxStaleThreshold,
		claimLimit:     DefaultOutboxClaimLimit,
		maxAttempts:    DefaultOutboxMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecoverStaleMessages requeues messages stuck in sending state (crash recovery).
// Should be called once at startup.
func (s *OutboxSender) RecoverStaleMessages() error {
	staleBefore := time.Now().Add(-s.staleThreshold)
	n, err := s.repo.RequeueStaleSendingMessages(staleBefore)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("OutboxSender.RecoverStaleMessages: requeued stale messages", "count", n)
	}
	return nil
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (s *OutboxSender) Run(ctx context.Context) {
	slog.Info("OutboxSender.Run: starting outbox sender", "pollInterval", s.pollInterval, "maxAttempts", s.maxAttempts)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("OutboxSender.Run: stopping")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// backoffFor returns the retry delay after the given number of prior attempts:
// 10s, 20s, 40s, ...
func backoffFor(attempts int) time.Duration {
	if attempts > 10 {
		attempts = 10
	}
	return outboxBaseBackoff * time.Duration(1<<attempts)
}

func (s *OutboxSender) poll(ctx context.Context) {
	now := time.Now()
	msgs, err := s.repo.ClaimDueOutboxMessages(now, s.claimLimit)
	if err != nil {
		slog.Error("OutboxSender.poll: claim failed", "error", err)
		return
	}

	for _, msg := range msgs {
		if ctx.Err() != nil {
			// Left in sending; RecoverStaleMessages requeues it on the next start.
			return
		}
		slog.Debug("OutboxSender.poll: sending message", "id", msg.ID, "recipientID", msg.RecipientID, "kind", msg.Kind)
		err := s.sendFunc(ctx, msg)
		if err == nil {
			if err := s.repo.MarkOutboxMessageSent(msg.ID); err != nil {
				slog.Error("OutboxSender.poll: mark sent error", "id", msg.ID, "error", err)
			}
			slog.Debug("OutboxSender.poll: message sent", "id", msg.ID, "recipientID", msg.RecipientID)
			continue
		}

		slog.Error("OutboxSender.poll: send failed", "id", msg.ID, "attempt", msg.Attempts+1, "error", err)
		if msg.Attempts+1 >= s.maxAttempts {
			if err := s.repo.GiveUpOutboxMessage(msg.ID, err.Error()); err != nil {
				slog.Error("OutboxSender.poll: give up error", "id", msg.ID, "error", err)
			}
			continue
		}
		if err := s.repo.FailOutboxMessage(msg.ID, err.Error(), now.Add(backoffFor(msg.Attempts))); err != nil {
			slog.Error("OutboxSender.poll: fail message error", "id", msg.ID, "error", err)
		}
	}
}
