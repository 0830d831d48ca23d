package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/session"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
	"github.com/go-chi/chi/v5"
)

// verifyHandler answers the Messenger subscription handshake (GET /webhook).
func (s *Server) verifyHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, token, challenge := q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge")
	if mode == "" && token == "" && challenge == "" {
		writeText(w, http.StatusOK, WebhookGreeting)
		return
	}
	echo, ok := messenger.Verify(mode, token, challenge, s.verifyToken)
	if !ok {
		slog.Warn("Server.verifyHandler: verification failed", "mode", mode)
		writeText(w, http.StatusForbidden, "Verification token mismatch")
		return
	}
	slog.Info("Server.verifyHandler: webhook verified")
	writeText(w, http.StatusOK, echo)
}

// messengerWebhookHandler queues Messenger events (POST /webhook). It always
// acknowledges so Facebook does not retry deliveries the bot cannot use.
func (s *Server) messengerWebhookHandler(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	if s.messenger == nil {
		slog.Warn("Server.messengerWebhookHandler: messenger channel disabled")
		writeText(w, http.StatusOK, EventReceived)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxWebhookBodyBytes))
	if err != nil {
		slog.Warn("Server.messengerWebhookHandler: failed to read body", "error", err)
		writeText(w, http.StatusOK, EventReceived)
		return
	}
	events, err := messenger.ParseWebhook(body)
	if err != nil {
		slog.Warn("Server.messengerWebhookHandler: invalid payload", "error", err)
		writeText(w, http.StatusOK, EventReceived)
		return
	}
	slog.Debug("Server.messengerWebhookHandler: parsed events", "count", len(events))
	for _, in := range events {
		if err := s.messenger.Receive(in); err != nil {
			slog.Error("Server.messengerWebhookHandler: failed to queue event", "from", in.SenderID, "error", err)
		}
	}
	writeText(w, http.StatusOK, EventReceived)
}

// twilioWebhookHandler queues an inbound SMS or WhatsApp message
// (POST /twilio/webhook) and answers with empty TwiML.
func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if s.twilio == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Twilio channel not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes)
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioWebhookHandler: failed to parse form", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid form body"))
		return
	}
	in, err := twiliochat.ParseInbound(r.PostForm, s.twilioChannel)
	if err != nil {
		slog.Warn("Server.twilioWebhookHandler: invalid message", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.twilio.Receive(in); err != nil {
		slog.Error("Server.twilioWebhookHandler: failed to queue message", "from", in.SenderID, "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Message queue unavailable"))
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, emptyTwiML); err != nil {
		slog.Error("Server.twilioWebhookHandler: failed to write response", "error", err)
	}
}

const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// setupHandler pushes the get started button, greeting and persistent menu
// from the current bot content (POST /setup).
func (s *Server) setupHandler(w http.ResponseWriter, r *http.Request) {
	if s.profile == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Messenger channel not configured"))
		return
	}
	content := s.content.Current()
	settings := messenger.ProfileSettings{
		GetStartedPayload: content.GetStartedPayload,
		Greeting:          content.Greeting,
	}
	for _, m := range content.Menu {
		settings.Menu = append(settings.Menu, messenger.MenuItem{Title: m.Title, Payload: m.Payload})
	}

	ctx, cancel := context.WithTimeout(r.Context(), messenger.DefaultTimeout)
	defer cancel()
	if err := s.profile.SetupProfile(ctx, settings); err != nil {
		slog.Error("Server.setupHandler: profile setup failed", "error", err)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Failed to set up Messenger profile"))
		return
	}
	slog.Info("Server.setupHandler: messenger profile updated", "menuItems", len(settings.Menu))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Messenger profile updated", nil))
}

// recordsHandler lists persisted records (GET /records?kind=&limit=).
func (s *Server) recordsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var kind models.EventKind
	if raw := q.Get("kind"); raw != "" {
		k, err := models.ParseEventKind(raw)
		if err != nil {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		kind = k
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSONResponse(w, http.StatusBadRequest, models.Error("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	records, err := s.records.ListRecords(r.Context(), kind, limit)
	if err != nil {
		slog.Error("Server.recordsHandler: failed to list records", "kind", kind, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch records"))
		return
	}
	slog.Debug("Server.recordsHandler: records fetched", "kind", kind, "count", len(records))
	writeJSONResponse(w, http.StatusOK, models.Success(records))
}

// getSessionHandler returns a user's session (GET /sessions/{userID}).
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	snap, err := s.sessions.Snapshot(userID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
			return
		}
		slog.Error("Server.getSessionHandler: failed to load session", "userID", userID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

// resetSessionHandler returns a user to idle (DELETE /sessions/{userID}).
func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	s.sessions.Reset(userID)
	if s.history != nil {
		s.history.Forget(userID)
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}

// healthHandler reports liveness and the number of live sessions.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"channels":  s.channels(),
	}
	if s.sessionLen != nil {
		healthData["active_sessions"] = s.sessionLen()
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}

func (s *Server) channels() []string {
	var out []string
	if s.messenger != nil {
		out = append(out, s.messenger.Platform())
	}
	if s.twilio != nil {
		out = append(out, s.twilio.Platform())
	}
	return out
}
