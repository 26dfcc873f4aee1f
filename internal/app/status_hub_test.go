package app

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
)

func receiveEvent(t *testing.T, ch <-chan domain.RelayStatusEvent) domain.RelayStatusEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("channel closed without an event")
		}
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return domain.RelayStatusEvent{}
}

func TestStatusHubDeliversToSubscriber(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	ch, cancel := hub.Subscribe(channelID)
	defer cancel()

	event := domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusSuccess, TransactionHash: "0xfeed"}
	if !hub.Deliver(event) {
		t.Fatal("first delivery should succeed")
	}

	got := receiveEvent(t, ch)
	if got.TransactionHash != "0xfeed" || got.Status != chain.StatusSuccess {
		t.Errorf("got %+v, want the delivered event", got)
	}

	// The channel fires once and then closes.
	if _, open := <-ch; open {
		t.Error("subscription channel must close after the terminal event")
	}
}

func TestStatusHubSuppressesDuplicateTerminal(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	ch, cancel := hub.Subscribe(channelID)
	defer cancel()

	first := domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusFailed}
	second := domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusSuccess, TransactionHash: "0xlate"}

	if !hub.Deliver(first) {
		t.Fatal("first delivery should succeed")
	}
	if hub.Deliver(second) {
		t.Error("second terminal event for the same channel must be dropped")
	}

	got := receiveEvent(t, ch)
	if got.Status != chain.StatusFailed {
		t.Errorf("subscriber saw %q, want the first terminal status", got.Status)
	}
}

func TestStatusHubReplaysAfterLateSubscribe(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	event := domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusSuccess, TransactionHash: "0xearly"}
	if !hub.Deliver(event) {
		t.Fatal("delivery with no subscriber should still record the event")
	}

	ch, cancel := hub.Subscribe(channelID)
	defer cancel()
	got := receiveEvent(t, ch)
	if got.TransactionHash != "0xearly" {
		t.Errorf("late subscriber got %+v, want the recorded event", got)
	}
}

func TestStatusHubIgnoresNonTerminal(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	if hub.Deliver(domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusPending}) {
		t.Error("pending is not terminal and must not be delivered")
	}

	ch, cancel := hub.Subscribe(channelID)
	defer cancel()
	select {
	case event := <-ch:
		t.Errorf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusHubCancelDetachesSubscriber(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	ch, cancel := hub.Subscribe(channelID)
	cancel()

	if !hub.Deliver(domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusFailed}) {
		t.Fatal("delivery after cancel still records the terminal event")
	}
	select {
	case event, open := <-ch:
		if open {
			t.Errorf("cancelled subscriber received %+v", event)
		}
	case <-time.After(50 * time.Millisecond):
	}

	// A fresh subscription still sees the replay.
	ch2, cancel2 := hub.Subscribe(channelID)
	defer cancel2()
	got := receiveEvent(t, ch2)
	if got.Status != chain.StatusFailed {
		t.Errorf("replay status = %q, want failed", got.Status)
	}
}

func TestStatusHubForget(t *testing.T) {
	hub := NewStatusHub()
	channelID := uuid.New()

	hub.Deliver(domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusSuccess})
	hub.Forget(channelID)

	// After Forget the same channel id behaves as brand new.
	if !hub.Deliver(domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusFailed}) {
		t.Error("forgotten channel should accept a terminal event again")
	}
}
