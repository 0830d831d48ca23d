package messaging

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/models"
)

// channels holds the receipt and inbound channels shared by every service,
// with stop handling that never sends on a closed channel.
type channels struct {
	name      string
	receipts  chan models.Receipt
	responses chan models.Inbound
	mu        sync.RWMutex
	stopped   bool
}

func newChannels(name string) *channels {
	return &channels{
		name:      name,
		receipts:  make(chan models.Receipt, DefaultChannelBufferSize),
		responses: make(chan models.Inbound, DefaultChannelBufferSize),
	}
}

func (c *channels) isStopped() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stopped
}

func (c *channels) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.receipts)
	close(c.responses)
	slog.Info(c.name+".Stop: channels closed")
}

// Receipts returns the channel for sent message receipts.
func (c *channels) Receipts() <-chan models.Receipt { return c.receipts }

// Responses returns the channel for inbound events.
func (c *channels) Responses() <-chan models.Inbound { return c.responses }

func (c *channels) emitReceipt(to string, status models.MessageStatus) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		return
	}
	select {
	case c.receipts <- models.Receipt{To: to, Status: status, Time: time.Now().Unix()}:
	default:
		slog.Debug(c.name+".emitReceipt: receipts channel full, dropping receipt", "to", to)
	}
}

// Receive queues an inbound event. It waits up to DefaultChannelTimeout when
// the channel is full and then drops the event.
func (c *channels) Receive(in models.Inbound) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		slog.Warn(c.name+".Receive: dropping inbound event (service stopped)", "from", in.SenderID)
		return ErrServiceStopped
	}
	select {
	case c.responses <- in:
		slog.Debug(c.name+".Receive: inbound event queued", "from", in.SenderID, "kind", in.Kind)
		return nil
	case <-time.After(DefaultChannelTimeout):
		slog.Warn(c.name+".Receive: responses channel blocked, dropping event", "from", in.SenderID)
		return ErrChannelFull
	}
}
