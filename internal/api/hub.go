package api

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ytget/yt-multiloader/internal/model"
)

// DefaultSubscriberBuffer is the per-subscriber queue length
const DefaultSubscriberBuffer = 64

// Hub fans the service's single event channel out to any number of
// subscribers. Slow subscribers miss events instead of stalling the engine.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan model.Event]struct{}
	closed bool
	buffer int
	logger logrus.FieldLogger
}

// NewHub creates an empty hub
func NewHub(logger logrus.FieldLogger) *Hub {
	return &Hub{
		subs:   make(map[chan model.Event]struct{}),
		buffer: DefaultSubscriberBuffer,
		logger: logger.WithField("component", "hub"),
	}
}

// Run broadcasts events until the channel is closed, then closes every
// subscription
func (h *Hub) Run(events <-chan model.Event) {
	for ev := range events {
		h.broadcast(ev)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}

// Subscribe registers a new listener. The returned func unsubscribes.
func (h *Hub) Subscribe() (<-chan model.Event, func()) {
	ch := make(chan model.Event, h.buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of active subscriptions
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(ev model.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.WithFields(logrus.Fields{"item": ev.Item.ID, "kind": ev.Kind}).Warn("subscriber too slow, event dropped")
		}
	}
}
