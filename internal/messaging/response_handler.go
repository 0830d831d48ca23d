// Package messaging delivers bot replies over chat platforms and routes
// inbound events to the flow dispatcher or the assistant.
package messaging

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/botconfig"
	"github.com/BTreeMap/SwiftShowings/internal/flow"
	"github.com/BTreeMap/SwiftShowings/internal/genai"
	"github.com/BTreeMap/SwiftShowings/internal/models"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/util"
)

// Handler defaults.
const (
	DefaultWorkers       = 4
	DefaultSendTimeout   = 15 * time.Second
	DefaultAssistTimeout = 60 * time.Second
	DefaultLogTimeout    = 5 * time.Second
	DefaultThreadTTL     = 24 * time.Hour
	DefaultThreadUsers   = 10000
)

// Message column values for conversation rows of menu interactions.
const (
	getStartedLogMessage = "Get Started"
	quickReplyLogPrefix  = "Quick Reply: "
	selectedLogPrefix    = "Selected: "
)

// FlowEngine is the subset of flow.Dispatcher the handler drives.
type FlowEngine interface {
	Process(ctx context.Context, userID, userName, message string) (models.Reply, bool)
	ForceStart(ctx context.Context, userID string, flowID models.FlowID) (models.Reply, error)
	ProcessCategory(ctx context.Context, userID, userName string, routerID models.FlowID, label string) (models.Reply, error)
}

var _ FlowEngine = (*flow.Dispatcher)(nil)

// Assistant answers messages that no flow handles.
type Assistant interface {
	Ask(ctx context.Context, userID, text string) (string, error)
}

// ConversationLogger records each exchange.
type ConversationLogger interface {
	LogConversation(ctx context.Context, entry models.ConversationEntry) error
}

// menuRoute maps a menu payload to the router it starts and the label used in
// conversation logs.
type menuRoute struct {
	flow  models.FlowID
	label string
}

var menuRoutes = map[models.Payload]menuRoute{
	models.PayloadFindHome:  {flow: models.FlowFindHome, label: "Find Home"},
	models.PayloadGetHelp:   {flow: models.FlowGetHelp, label: "Get Help"},
	models.PayloadSaveMoney: {flow: models.FlowSaveMoney, label: "Save Money"},
}

var categoryPayloads = map[models.Payload]string{
	models.PayloadBuy:  flow.LabelBuy,
	models.PayloadRent: flow.LabelRent,
}

// ResponseHandler turns inbound events from one Service into replies.
type ResponseHandler struct {
	svc         Service
	engine      FlowEngine
	assistant   Assistant
	dedup       store.DedupRepo
	convo       ConversationLogger
	content     func() botconfig.Content
	workers     int
	sendTimeout time.Duration

	threadTTL   time.Duration
	threadUsers int
	threadOpts  []util.CacheOption
	threads     *util.Cache[string, string]
}

// ResponseHandlerOption configures a ResponseHandler.
type ResponseHandlerOption func(*ResponseHandler)

// WithAssistant sets the fallback assistant. Without one, idle users get
// genai.FallbackReply.
func WithAssistant(a Assistant) ResponseHandlerOption {
	return func(h *ResponseHandler) { h.assistant = a }
}

// WithDedup drops events whose message id was already recorded.
func WithDedup(d store.DedupRepo) ResponseHandlerOption {
	return func(h *ResponseHandler) { h.dedup = d }
}

// WithConversationLogger records every exchange.
func WithConversationLogger(l ConversationLogger) ResponseHandlerOption {
	return func(h *ResponseHandler) { h.convo = l }
}

// WithContent supplies the current welcome, menu and Learn More texts.
func WithContent(fn func() botconfig.Content) ResponseHandlerOption {
	return func(h *ResponseHandler) { h.content = fn }
}

// WithWorkers sets how many users are served in parallel by Start.
func WithWorkers(n int) ResponseHandlerOption {
	return func(h *ResponseHandler) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithThreadBounds forgets a user's thread id after ttl without messages and
// caps how many are kept. Non-positive values keep the defaults.
func WithThreadBounds(ttl time.Duration, users int) ResponseHandlerOption {
	return func(h *ResponseHandler) {
		if ttl > 0 {
			h.threadTTL = ttl
		}
		if users > 0 {
			h.threadUsers = users
		}
	}
}

// WithThreadClock overrides the time source used to expire thread ids.
func WithThreadClock(now func() time.Time) ResponseHandlerOption {
	return func(h *ResponseHandler) {
		h.threadOpts = append(h.threadOpts, util.WithCacheClock(now))
	}
}

// NewResponseHandler creates a handler for svc driving engine.
func NewResponseHandler(svc Service, engine FlowEngine, opts ...ResponseHandlerOption) *ResponseHandler {
	defaults := botconfig.Default()
	h := &ResponseHandler{
		svc:         svc,
		engine:      engine,
		content:     func() botconfig.Content { return defaults },
		workers:     DefaultWorkers,
		sendTimeout: DefaultSendTimeout,
		threadTTL:   DefaultThreadTTL,
		threadUsers: DefaultThreadUsers,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.threads = util.NewCache[string, string](h.threadTTL, h.threadUsers, h.threadOpts...)
	return h
}

// Start consumes the service's inbound events until ctx is cancelled or the
// channel closes. Events from one user always go to the same worker, so a
// user's messages are handled in arrival order.
func (h *ResponseHandler) Start(ctx context.Context) {
	slog.Info("ResponseHandler.Start: processing inbound events", "platform", h.svc.Platform(), "workers", h.workers)

	queues := make([]chan models.Inbound, h.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan models.Inbound, DefaultChannelBufferSize)
		wg.Add(1)
		go func(q <-chan models.Inbound) {
			defer wg.Done()
			for in := range q {
				h.HandleInbound(ctx, in)
			}
		}(queues[i])
	}

	go func() {
		defer func() {
			for _, q := range queues {
				close(q)
			}
			wg.Wait()
			slog.Info("ResponseHandler.Start: stopped", "platform", h.svc.Platform())
		}()
		for {
			select {
			case in, ok := <-h.svc.Responses():
				if !ok {
					return
				}
				select {
				case queues[shard(in.SenderID, len(queues))] <- in:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func shard(userID string, n int) int {
	f := fnv.New32a()
	f.Write([]byte(userID))
	return int(f.Sum32() % uint32(n))
}

// HandleInbound processes one event end to end: dedup, routing, delivery and
// conversation logging.
func (h *ResponseHandler) HandleInbound(ctx context.Context, in models.Inbound) {
	if in.SenderID == "" {
		return
	}
	if !h.claim(in) {
		return
	}
	defer h.markProcessed(in)

	userName := h.userName(ctx, in.SenderID)

	var logged string
	var reply models.Reply
	switch in.Kind {
	case models.InboundKindPostback, models.InboundKindQuickReply:
		logged, reply = h.handlePayload(ctx, in, userName)
	default:
		logged, reply = h.handleText(ctx, in.SenderID, userName, h.resolveReply(in.SenderID, in.Text))
	}
	if reply.Text == "" {
		return
	}

	h.send(ctx, in.SenderID, reply)
	h.logConversation(ctx, in, userName, logged, reply.Text)
}

func (h *ResponseHandler) handlePayload(ctx context.Context, in models.Inbound, userName string) (string, models.Reply) {
	payload := models.Payload(in.Payload)
	content := h.content()

	if payload == models.Payload(content.GetStartedPayload) || payload == models.PayloadGetStarted {
		return getStartedLogMessage, models.Reply{Text: content.Welcome, Options: content.MenuTitles()}
	}
	if route, ok := menuRoutes[payload]; ok {
		reply, err := h.engine.ForceStart(ctx, in.SenderID, route.flow)
		if err != nil {
			slog.Error("ResponseHandler.handlePayload: failed to start flow", "userID", in.SenderID, "flow", route.flow, "error", err)
			return "", models.Reply{}
		}
		return quickReplyLogPrefix + route.label, reply
	}
	if payload == models.PayloadLearnMore {
		return quickReplyLogPrefix + "Learn More", models.Reply{Text: content.LearnMore}
	}
	if label, ok := categoryPayloads[payload]; ok {
		reply, err := h.engine.ProcessCategory(ctx, in.SenderID, userName, models.FlowFindHome, label)
		if err != nil {
			slog.Error("ResponseHandler.handlePayload: failed to process category", "userID", in.SenderID, "label", label, "error", err)
			return "", models.Reply{}
		}
		return selectedLogPrefix + in.Payload, reply
	}

	// Any other quick reply answers the current step with the tapped title.
	answer := in.Text
	if answer == "" {
		answer = in.Payload
	}
	_, reply := h.handleText(ctx, in.SenderID, userName, answer)
	return quickReplyLogPrefix + in.Payload, reply
}

func (h *ResponseHandler) handleText(ctx context.Context, userID, userName, text string) (string, models.Reply) {
	if reply, handled := h.engine.Process(ctx, userID, userName, text); handled {
		return text, reply
	}
	return text, models.Reply{Text: h.ask(ctx, userID, text)}
}

func (h *ResponseHandler) ask(ctx context.Context, userID, text string) string {
	if h.assistant == nil {
		return genai.FallbackReply
	}
	actx, cancel := context.WithTimeout(ctx, DefaultAssistTimeout)
	defer cancel()
	answer, err := h.assistant.Ask(actx, userID, text)
	if err != nil {
		slog.Error("ResponseHandler.ask: assistant failed", "userID", userID, "error", err)
		if answer == "" {
			answer = genai.FallbackReply
		}
	}
	return answer
}

func (h *ResponseHandler) send(ctx context.Context, to string, reply models.Reply) {
	sctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	if err := Deliver(sctx, h.svc, to, reply); err != nil {
		slog.Error("ResponseHandler.send: delivery failed", "to", to, "platform", h.svc.Platform(), "error", err)
	}
}

// claim records the message id and reports whether the event is new. Events
// without an id, or a dedup store error, are always processed.
func (h *ResponseHandler) claim(in models.Inbound) bool {
	if h.dedup == nil || in.MessageID == "" {
		return true
	}
	isNew, err := h.dedup.RecordInbound(in.MessageID, in.SenderID)
	if err != nil {
		slog.Warn("ResponseHandler.claim: dedup check failed, processing anyway", "messageID", in.MessageID, "error", err)
		return true
	}
	if !isNew {
		slog.Info("ResponseHandler.claim: dropping duplicate event", "messageID", in.MessageID, "from", in.SenderID)
	}
	return isNew
}

func (h *ResponseHandler) markProcessed(in models.Inbound) {
	if h.dedup == nil || in.MessageID == "" {
		return
	}
	if err := h.dedup.MarkProcessed(in.MessageID); err != nil {
		slog.Warn("ResponseHandler.markProcessed: failed", "messageID", in.MessageID, "error", err)
	}
}

func (h *ResponseHandler) userName(ctx context.Context, userID string) string {
	r, ok := unwrap(h.svc).(NameResolver)
	if !ok {
		return ""
	}
	return r.UserName(ctx, userID)
}

func (h *ResponseHandler) resolveReply(from, text string) string {
	r, ok := unwrap(h.svc).(ReplyResolver)
	if !ok {
		return text
	}
	return r.ResolveReply(from, text)
}

// ThreadID returns the thread id used in userID's conversation rows. A user
// idle for longer than the thread TTL starts a new thread.
func (h *ResponseHandler) ThreadID(userID string) string {
	return h.threads.Update(userID, func(id string, ok bool) string {
		if !ok {
			id = util.GenerateThreadID()
		}
		return id
	})
}

// ThreadCount reports how many thread ids are held.
func (h *ResponseHandler) ThreadCount() int {
	return h.threads.Len()
}

func (h *ResponseHandler) logConversation(ctx context.Context, in models.Inbound, userName, message, response string) {
	if h.convo == nil {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultLogTimeout)
	defer cancel()
	entry := models.ConversationEntry{
		UserID:   in.SenderID,
		UserName: userName,
		Message:  message,
		Response: response,
		Platform: h.svc.Platform(),
		ThreadID: h.ThreadID(in.SenderID),
	}
	if err := h.convo.LogConversation(lctx, entry); err != nil {
		slog.Error("ResponseHandler.logConversation: failed", "userID", in.SenderID, "error", err)
	}
}
