/**
 * @description
 * In-process delivery of relay status events to waiting clients. Each
 * channel id has at most one subscriber and receives at most one terminal
 * event; this is deliberately not a generic event bus. The push transport
 * that carries the event to the browser sits on top of Subscribe.
 */

package app

import (
	"sync"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/domain"
)

// StatusHub routes terminal relay events to single-consumer, single-fire
// subscriptions keyed by channel id.
type StatusHub struct {
	mu        sync.Mutex
	waiters   map[uuid.UUID]chan domain.RelayStatusEvent
	delivered map[uuid.UUID]domain.RelayStatusEvent
}

// NewStatusHub creates an empty hub.
func NewStatusHub() *StatusHub {
	return &StatusHub{
		waiters:   make(map[uuid.UUID]chan domain.RelayStatusEvent),
		delivered: make(map[uuid.UUID]domain.RelayStatusEvent),
	}
}

// Subscribe registers the single consumer for a channel id and returns a
// receive channel that fires at most once, plus a cancel function for the
// subscriber to call when it stops listening (e.g. the user navigates
// away). If the terminal event already arrived, it is replayed
// immediately. A second Subscribe for the same id replaces the first.
func (h *StatusHub) Subscribe(channelID uuid.UUID) (<-chan domain.RelayStatusEvent, func()) {
	ch := make(chan domain.RelayStatusEvent, 1)

	h.mu.Lock()
	if event, ok := h.delivered[channelID]; ok {
		ch <- event
		close(ch)
		h.mu.Unlock()
		return ch, func() {}
	}
	h.waiters[channelID] = ch
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if current, ok := h.waiters[channelID]; ok && current == ch {
			delete(h.waiters, channelID)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Deliver hands a terminal event to the channel's subscriber, if any.
// Delivery is at-most-once per channel id: a duplicate terminal event is
// dropped and reported as such so callers can count suppressions.
func (h *StatusHub) Deliver(event domain.RelayStatusEvent) (delivered bool) {
	if !event.Terminal() {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, seen := h.delivered[event.ChannelID]; seen {
		return false
	}
	h.delivered[event.ChannelID] = event

	if ch, ok := h.waiters[event.ChannelID]; ok {
		ch <- event
		close(ch)
		delete(h.waiters, event.ChannelID)
	}
	return true
}

// Forget drops the terminal record for a channel id once the client has
// acknowledged it, keeping the delivered map from growing unbounded.
func (h *StatusHub) Forget(channelID uuid.UUID) {
	h.mu.Lock()
	delete(h.delivered, channelID)
	delete(h.waiters, channelID)
	h.mu.Unlock()
}
