package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
)

func TestRelayStatusConsumerDeliversTerminalEvent(t *testing.T) {
	hub := NewStatusHub()
	consumer := NewRelayStatusConsumer(hub)

	channelID := uuid.New()
	ch, cancel := hub.Subscribe(channelID)
	defer cancel()

	body, err := json.Marshal(domain.RelayStatusEvent{
		ChannelID:       channelID,
		Status:          chain.StatusSuccess,
		TransactionHash: "0xdeadbeef",
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	if !consumer.HandleMessage(body) {
		t.Fatal("valid message must be acked")
	}

	got := receiveEvent(t, ch)
	if got.Status != chain.StatusSuccess || got.TransactionHash != "0xdeadbeef" {
		t.Errorf("subscriber got %+v", got)
	}
}

func TestRelayStatusConsumerAcksJunk(t *testing.T) {
	hub := NewStatusHub()
	consumer := NewRelayStatusConsumer(hub)

	cases := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("::: not json :::")},
		{"missing channel id", mustEventJSON(t, domain.RelayStatusEvent{Status: chain.StatusSuccess})},
		{"unknown status", mustEventJSON(t, domain.RelayStatusEvent{ChannelID: uuid.New(), Status: "mined"})},
		{"non-terminal status", mustEventJSON(t, domain.RelayStatusEvent{ChannelID: uuid.New(), Status: chain.StatusPending})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !consumer.HandleMessage(tc.body) {
				t.Error("unfixable messages must be acked, not re-queued")
			}
		})
	}
}

func TestRelayStatusConsumerDuplicateIsSuppressed(t *testing.T) {
	hub := NewStatusHub()
	consumer := NewRelayStatusConsumer(hub)

	channelID := uuid.New()
	ch, cancel := hub.Subscribe(channelID)
	defer cancel()

	success := mustEventJSON(t, domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusSuccess, TransactionHash: "0x1"})
	failed := mustEventJSON(t, domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusFailed})

	if !consumer.HandleMessage(success) {
		t.Fatal("first delivery must be acked")
	}
	if !consumer.HandleMessage(failed) {
		t.Fatal("duplicate must still be acked")
	}

	got := receiveEvent(t, ch)
	if got.Status != chain.StatusSuccess {
		t.Errorf("subscriber saw %q, want the first terminal status", got.Status)
	}
	select {
	case event, open := <-ch:
		if open {
			t.Errorf("subscriber received a second event %+v", event)
		}
	case <-time.After(50 * time.Millisecond):
		t.Error("subscription channel should be closed after the terminal event")
	}
}

func mustEventJSON(t *testing.T, event domain.RelayStatusEvent) []byte {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}
