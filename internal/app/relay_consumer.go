package app

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
)

// RelayStatusConsumer feeds relay status events from the message broker
// into the status hub. It is bound to the relay.status.* routing keys on
// the stackup.events exchange.
type RelayStatusConsumer struct {
	hub *StatusHub
}

func NewRelayStatusConsumer(hub *StatusHub) *RelayStatusConsumer {
	return &RelayStatusConsumer{hub: hub}
}

// HandleMessage processes one delivery. Returning true acks the message;
// malformed payloads are acked too since re-queuing cannot fix them.
func (c *RelayStatusConsumer) HandleMessage(body []byte) bool {
	var event domain.RelayStatusEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("relay-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if event.ChannelID == uuid.Nil {
		log.Printf("relay-consumer: missing channel id in event %+v", event)
		return true
	}
	if !chain.ValidStatus(event.Status) {
		log.Printf("relay-consumer: unknown status %q for channel %s; dropping", event.Status, event.ChannelID)
		return true
	}
	if !event.Terminal() {
		// Only terminal events travel the channel; pending is implicit.
		return true
	}

	if !c.hub.Deliver(event) {
		log.Printf("relay-consumer: duplicate terminal event for channel %s suppressed", event.ChannelID)
	}
	return true
}
