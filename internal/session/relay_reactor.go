package session

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
)

// Notifier surfaces user-visible toasts.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// reactedRetention bounds how long a channel id stays in the reaction
// dedupe map. Replays arrive within seconds of the original; entries
// older than this are pruned so the map does not grow for the life of
// a long-running session.
const reactedRetention = time.Hour

// RelayReactor applies UI side effects for terminal relay events: a
// successful recovery redirects to login (the signer was rotated, the
// old session is void), a failure shows a toast and stays put. Side
// effects fire at most once per channel id; the transport may replay
// a terminal event and navigation must not double-apply.
type RelayReactor struct {
	nav      Navigator
	notifier Notifier
	now      Clock

	mu      sync.Mutex
	reacted map[uuid.UUID]time.Time
}

func NewRelayReactor(nav Navigator, notifier Notifier) *RelayReactor {
	return &RelayReactor{
		nav:      nav,
		notifier: notifier,
		now:      time.Now,
		reacted:  make(map[uuid.UUID]time.Time),
	}
}

// React handles one status event. Non-terminal events and repeats are
// ignored; returns whether a side effect was applied.
func (r *RelayReactor) React(event domain.RelayStatusEvent) bool {
	if !event.Terminal() {
		return false
	}
	now := r.now()

	r.mu.Lock()
	if _, seen := r.reacted[event.ChannelID]; seen {
		r.mu.Unlock()
		log.Printf("level=info component=session msg=\"duplicate terminal event ignored\" channel_id=%s", event.ChannelID)
		return false
	}
	r.reacted[event.ChannelID] = now
	for id, at := range r.reacted {
		if now.Sub(at) > reactedRetention {
			delete(r.reacted, id)
		}
	}
	r.mu.Unlock()

	if event.Status == chain.StatusSuccess {
		r.notifier.Success("Account recovered. Sign in with your new credentials.")
		r.nav.Redirect(RouteLogin)
	} else {
		r.notifier.Failure("Recovery could not be completed. Please try again.")
	}
	return true
}
