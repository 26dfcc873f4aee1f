/**
 * @description
 * Relay-side domain models: the ephemeral relay request, the staged
 * operation set returned to the client, and the status event pushed over
 * the channel once the request reaches a terminal state.
 */

package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
)

// Recovery actions map one-to-one onto registered wallet methods.
const (
	RecoveryActionGrantGuardian  = "grantGuardian"
	RecoveryActionRevokeGuardian = "revokeGuardian"
	RecoveryActionTransferOwner  = "transferOwner"
)

// RelayRequest is the ephemeral record of one submitted on-chain operation.
// It lives only as long as the client needs to be notified.
type RelayRequest struct {
	ChannelID      uuid.UUID             `json:"channel_id"`
	Type           string                `json:"type"` // genericRelay | recoverAccount | newPayment
	ChainID        uint64                `json:"chain_id"`
	UserOperations []chain.UserOperation `json:"userOperations"`
	Status         string                `json:"status"` // pending | success | failed
	CreatedAt      time.Time             `json:"created_at"`
}

// RecoveryLookupRequest starts a recovery flow by username.
type RecoveryLookupRequest struct {
	Username string `json:"username"`
}

// RecoveryOperationsRequest asks the orchestrator to stage recovery
// operations for confirmation.
type RecoveryOperationsRequest struct {
	Username string `json:"username"`
	Action   string `json:"action"`   // grantGuardian | revokeGuardian | transferOwner
	Address  string `json:"address"`  // guardian or new owner address
	ChainID  uint64 `json:"chain_id"` // defaults to the configured chain
}

// StagedOperations is returned to the client without blocking on mining.
// The chain id travels with the staged set so confirmation signs and
// submits to the chain the operations were built for.
type StagedOperations struct {
	ChannelID      uuid.UUID             `json:"channelId"`
	ChainID        uint64                `json:"chain_id"`
	UserOperations []chain.UserOperation `json:"userOperations"`
}

// RecoveryConfirmRequest authorizes release of the encrypted signer. The
// response is an acknowledgment only; the result arrives via the channel.
type RecoveryConfirmRequest struct {
	Username       string                `json:"username"`
	Password       string                `json:"password"`
	ChannelID      uuid.UUID             `json:"channelId"`
	ChainID        uint64                `json:"chain_id"`
	UserOperations []chain.UserOperation `json:"userOperations"`
}

// RelayStatusEvent is the status channel payload:
// { status: "pending"|"success"|"failed", transactionHash?: string }.
// The hash may be absent on failure before submission.
type RelayStatusEvent struct {
	ChannelID       uuid.UUID `json:"channel_id"`
	Status          string    `json:"status"`
	TransactionHash string    `json:"transactionHash,omitempty"`
}

// Terminal reports whether the event ends the channel's lifecycle.
func (e RelayStatusEvent) Terminal() bool {
	return e.Status == chain.StatusSuccess || e.Status == chain.StatusFailed
}
