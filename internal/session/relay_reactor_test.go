package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
)

type recordingNotifier struct {
	mu       sync.Mutex
	success  []string
	failures []string
}

func (n *recordingNotifier) Success(message string) {
	n.mu.Lock()
	n.success = append(n.success, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) Failure(message string) {
	n.mu.Lock()
	n.failures = append(n.failures, message)
	n.mu.Unlock()
}

func TestRelayReactorSuccessRedirectsOnce(t *testing.T) {
	nav := &recordingNavigator{}
	notifier := &recordingNotifier{}
	reactor := NewRelayReactor(nav, notifier)

	event := domain.RelayStatusEvent{
		ChannelID:       uuid.New(),
		Status:          chain.StatusSuccess,
		TransactionHash: "0xabc",
	}

	if !reactor.React(event) {
		t.Fatal("first terminal event must apply side effects")
	}
	// The transport may replay the terminal event; navigation must not
	// double-apply.
	if reactor.React(event) {
		t.Error("duplicate terminal event must be ignored")
	}

	if visited := nav.visited(); len(visited) != 1 || visited[0] != RouteLogin {
		t.Errorf("visited = %v, want a single redirect to %s", visited, RouteLogin)
	}
	if len(notifier.success) != 1 {
		t.Errorf("success toasts = %d, want 1", len(notifier.success))
	}
}

func TestRelayReactorFailureToastsWithoutRedirect(t *testing.T) {
	nav := &recordingNavigator{}
	notifier := &recordingNotifier{}
	reactor := NewRelayReactor(nav, notifier)

	if !reactor.React(domain.RelayStatusEvent{ChannelID: uuid.New(), Status: chain.StatusFailed}) {
		t.Fatal("failure event must apply side effects")
	}

	if visited := nav.visited(); len(visited) != 0 {
		t.Errorf("failure must not navigate, visited %v", visited)
	}
	if len(notifier.failures) != 1 {
		t.Errorf("failure toasts = %d, want 1", len(notifier.failures))
	}
}

func TestRelayReactorIgnoresNonTerminal(t *testing.T) {
	nav := &recordingNavigator{}
	notifier := &recordingNotifier{}
	reactor := NewRelayReactor(nav, notifier)

	if reactor.React(domain.RelayStatusEvent{ChannelID: uuid.New(), Status: chain.StatusPending}) {
		t.Error("pending is not terminal and must not react")
	}
	if len(nav.visited()) != 0 || len(notifier.success) != 0 || len(notifier.failures) != 0 {
		t.Error("non-terminal events must have no side effects")
	}
}

func TestRelayReactorIndependentChannels(t *testing.T) {
	nav := &recordingNavigator{}
	reactor := NewRelayReactor(nav, &recordingNotifier{})

	first := uuid.New()
	second := uuid.New()
	reactor.React(domain.RelayStatusEvent{ChannelID: first, Status: chain.StatusSuccess})
	if !reactor.React(domain.RelayStatusEvent{ChannelID: second, Status: chain.StatusSuccess}) {
		t.Error("a different channel id is an independent lifecycle")
	}
}

func TestRelayReactorPrunesStaleReactions(t *testing.T) {
	reactor := NewRelayReactor(&recordingNavigator{}, &recordingNotifier{})
	current := time.Now()
	reactor.now = func() time.Time { return current }

	first := uuid.New()
	reactor.React(domain.RelayStatusEvent{ChannelID: first, Status: chain.StatusSuccess})

	current = current.Add(reactedRetention + time.Minute)
	second := uuid.New()
	reactor.React(domain.RelayStatusEvent{ChannelID: second, Status: chain.StatusFailed})

	reactor.mu.Lock()
	_, firstKept := reactor.reacted[first]
	_, secondKept := reactor.reacted[second]
	reactor.mu.Unlock()
	if firstKept {
		t.Error("entry older than the retention window must be pruned")
	}
	if !secondKept {
		t.Error("the just-reacted channel must be retained for dedupe")
	}
}

func TestRegistryReplaceKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	var cleared []string

	reg.Register("first", ClearFunc(func() { cleared = append(cleared, "first:v1") }))
	reg.Register("second", ClearFunc(func() { cleared = append(cleared, "second") }))
	reg.Register("first", ClearFunc(func() { cleared = append(cleared, "first:v2") }))

	reg.Clear()

	if len(cleared) != 2 || cleared[0] != "first:v2" || cleared[1] != "second" {
		t.Errorf("cleared = %v, want replacement in original position", cleared)
	}
}
