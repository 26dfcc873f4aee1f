/**
 * @description
 * This file contains the recovery/relay orchestrator, the core of the
 * service. It turns a recovery or payment request into a signed on-chain
 * operation set, submits it without blocking the caller, and pushes
 * exactly one terminal status event per channel id.
 *
 * Lifecycle per relay request: DRAFT (client-local staged operations) ->
 * PENDING (submitted) -> SUCCESS | FAILED. Both end states are terminal;
 * the orchestrator never retries; a retry is a fresh request with a
 * fresh channel id.
 *
 * @dependencies
 * - context, errors, fmt, log, sync, time: Standard Go libraries.
 * - github.com/google/uuid: channel ids.
 * - github.com/ethereum/go-ethereum/common: address handling.
 * - internal/chain, internal/domain, internal/signer, internal/store,
 *   pkg/rabbitmq, pkg/relayerclient.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
	"github.com/hernan-erasmo/stackup/internal/signer"
	"github.com/hernan-erasmo/stackup/internal/store"
	"github.com/hernan-erasmo/stackup/pkg/rabbitmq"
	"github.com/hernan-erasmo/stackup/pkg/relayerclient"
)

var (
	ErrNoGuardians           = errors.New("wallet has no guardians; recovery is not possible")
	ErrUnknownRecoveryAction = errors.New("unknown recovery action")
	ErrUnknownRelayType      = errors.New("unknown relay type")
	ErrUnsupportedChain      = errors.New("unsupported chain id")
	ErrEmptyOperationSet     = errors.New("no user operations to relay")
	ErrRelaySubmission       = errors.New("relay submission failed")
	ErrRecoveryRateLimited   = errors.New("too many recovery attempts")
)

// MinRecoveryGuardians is the eligibility threshold: a wallet needs at
// least this many guardians for recovery to be staged. The observed
// policy is "non-empty"; the constant keeps a future threshold change to
// one line.
const MinRecoveryGuardians = 1

// RelayEventsExchange is the topic exchange carrying relay status events.
const RelayEventsExchange = "stackup.events"

// Routing keys for terminal relay status events.
const (
	RoutingKeyRelaySuccess = "relay.status.success"
	RoutingKeyRelayFailed  = "relay.status.failed"
)

// Relayer is the submission boundary. pkg/relayerclient implements it.
type Relayer interface {
	SubmitUserOperations(ctx context.Context, req relayerclient.SubmitRequest) (*relayerclient.SubmitResponse, error)
}

// RecoveryRateLimiter throttles recovery endpoints per username. A nil
// limiter disables throttling.
type RecoveryRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// RelayOrchestrator builds, submits and tracks relay requests.
type RelayOrchestrator struct {
	repo           store.Repository
	relayer        Relayer
	producer       rabbitmq.Publisher
	defaultChainID uint64

	limiter            RecoveryRateLimiter
	recoveryRateLimit  int
	recoveryRateWindow time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]time.Time // channels awaiting a terminal event
	done    map[uuid.UUID]time.Time // channels that already got one, by publish time
}

// doneRetention bounds how long a channel id stays in the publish dedupe
// map. Replays arrive within seconds; an hour is far past any of them,
// and pruning keeps the map from growing for the life of the process.
const doneRetention = time.Hour

// NewRelayOrchestrator creates the orchestrator. The producer may be the
// rabbitmq fallback; submission then still happens but clients observe
// the channel as indefinitely pending.
func NewRelayOrchestrator(repo store.Repository, relayer Relayer, producer rabbitmq.Publisher, defaultChainID uint64) *RelayOrchestrator {
	return &RelayOrchestrator{
		repo:           repo,
		relayer:        relayer,
		producer:       producer,
		defaultChainID: defaultChainID,
		pending:        make(map[uuid.UUID]time.Time),
		done:           make(map[uuid.UUID]time.Time),
	}
}

// SetRecoveryRateLimiter wires the optional per-username limiter shared
// by the recovery lookup, staging and confirm paths.
func (o *RelayOrchestrator) SetRecoveryRateLimiter(limiter RecoveryRateLimiter, limit int, window time.Duration) {
	o.limiter = limiter
	o.recoveryRateLimit = limit
	o.recoveryRateWindow = window
}

// consumeRecoveryLimit charges one request against the per-username
// window for the given scope. An unavailable limiter allows the request;
// recovery must not be hostage to Redis.
func (o *RelayOrchestrator) consumeRecoveryLimit(ctx context.Context, scope, username string) error {
	if o.limiter == nil || o.recoveryRateLimit <= 0 {
		return nil
	}
	subject := strings.ToLower(strings.TrimSpace(username))
	count, _, err := o.limiter.ConsumeRateLimit(ctx, scope, subject, o.recoveryRateLimit, o.recoveryRateWindow)
	if err != nil {
		log.Printf("level=warn component=relay msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return nil
	}
	if count > o.recoveryRateLimit {
		return ErrRecoveryRateLimited
	}
	return nil
}

// AllowRecoveryLookup throttles unauthenticated recovery lookups per
// username so the flow cannot be used to enumerate accounts.
func (o *RelayOrchestrator) AllowRecoveryLookup(ctx context.Context, username string) error {
	return o.consumeRecoveryLimit(ctx, "recover_lookup", username)
}

// BuildRecoveryOperations resolves the target wallet by username, checks
// recovery eligibility, and stages the operation set for confirmation.
// It never blocks on mining and never touches the encrypted signer.
func (o *RelayOrchestrator) BuildRecoveryOperations(ctx context.Context, req domain.RecoveryOperationsRequest) (*domain.StagedOperations, error) {
	chainID := req.ChainID
	if chainID == 0 {
		chainID = o.defaultChainID
	}
	if !chain.SupportedChainID(chainID) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	if err := o.consumeRecoveryLimit(ctx, "recover_operations", req.Username); err != nil {
		return nil, err
	}

	sigKey, err := recoverySignatureKey(req.Action)
	if err != nil {
		return nil, err
	}
	if !common.IsHexAddress(strings.TrimSpace(req.Address)) {
		return nil, fmt.Errorf("recovery target address: %w", store.ErrInvalidAddress)
	}

	wallet, err := o.repo.FindWalletForRecovery(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if len(wallet.InitGuardians) < MinRecoveryGuardians {
		log.Printf("level=warn component=relay msg=\"recovery ineligible\" username=%s guardians=%d", req.Username, len(wallet.InitGuardians))
		return nil, ErrNoGuardians
	}

	callData, err := chain.EncodeAddressCall(sigKey, common.HexToAddress(req.Address))
	if err != nil {
		return nil, err
	}

	op := chain.UserOperation{
		Sender:               common.HexToAddress(wallet.WalletAddress),
		CallData:             callData,
		CallGasLimit:         chain.DefaultCallGasLimit,
		VerificationGasLimit: chain.DefaultVerificationGasLimit,
		PreVerificationGas:   chain.DefaultPreVerificationGas,
	}

	staged := &domain.StagedOperations{
		ChannelID:      uuid.New(),
		ChainID:        chainID,
		UserOperations: []chain.UserOperation{op},
	}
	log.Printf("level=info component=relay msg=\"recovery operations staged\" channel_id=%s username=%s action=%s chain_id=%d",
		staged.ChannelID, req.Username, req.Action, chainID)
	return staged, nil
}

// ConfirmRecovery authorizes release of the encrypted signer with the
// user's password, signs the staged operations, and submits them
// asynchronously. The call returns once submission has been handed off;
// the terminal result arrives on the status channel.
func (o *RelayOrchestrator) ConfirmRecovery(ctx context.Context, req domain.RecoveryConfirmRequest) error {
	if len(req.UserOperations) == 0 {
		return ErrEmptyOperationSet
	}
	chainID := req.ChainID
	if chainID == 0 {
		chainID = o.defaultChainID
	}
	if !chain.SupportedChainID(chainID) {
		return fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	if err := o.consumeRecoveryLimit(ctx, "recover_confirm", req.Username); err != nil {
		return err
	}

	wallet, err := o.repo.FindWalletForRecovery(ctx, req.Username)
	if err != nil {
		return err
	}
	loginWallet, err := o.repo.FindWalletForLogin(ctx, req.Username)
	if err != nil {
		return err
	}

	key, err := signer.Decrypt(loginWallet.EncryptedSigner, req.Password)
	if err != nil {
		return err
	}

	entryPoint := common.HexToAddress(wallet.InitEntryPoint)
	ops := make([]chain.UserOperation, len(req.UserOperations))
	copy(ops, req.UserOperations)
	for i := range ops {
		// Signed with the staged chain id; the digest binds the chain,
		// so a mismatch here would make the signature worthless.
		digest := ops[i].Hash(entryPoint, chainID)
		keyCopy := make([]byte, len(key))
		copy(keyCopy, key)
		sig, err := signer.SignDigest(digest.Bytes(), keyCopy)
		if err != nil {
			zero(key)
			return fmt.Errorf("sign operation %d: %w", i, err)
		}
		ops[i].Signature = sig
	}
	zero(key)

	o.markPending(req.ChannelID)
	go o.submit(req.ChannelID, chain.TypeRecoverAccount, chainID, wallet.InitEntryPoint, ops)

	log.Printf("level=info component=relay msg=\"recovery confirmed; submission in flight\" channel_id=%s username=%s ops=%d chain_id=%d",
		req.ChannelID, req.Username, len(ops), chainID)
	return nil
}

// SubmitSignedRelay relays an already-signed operation set (genericRelay
// and newPayment types; clients sign these locally after login). Returns
// the channel id the terminal status will be pushed on.
func (o *RelayOrchestrator) SubmitSignedRelay(ctx context.Context, relayType string, chainID uint64, entryPoint string, ops []chain.UserOperation) (uuid.UUID, error) {
	if relayType != chain.TypeGenericRelay && relayType != chain.TypeNewPayment {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrUnknownRelayType, relayType)
	}
	if chainID == 0 {
		chainID = o.defaultChainID
	}
	if !chain.SupportedChainID(chainID) {
		return uuid.Nil, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	if len(ops) == 0 {
		return uuid.Nil, ErrEmptyOperationSet
	}
	if !common.IsHexAddress(strings.TrimSpace(entryPoint)) {
		return uuid.Nil, fmt.Errorf("entry point: %w", store.ErrInvalidAddress)
	}

	channelID := uuid.New()
	o.markPending(channelID)
	go o.submit(channelID, relayType, chainID, entryPoint, ops)

	log.Printf("level=info component=relay msg=\"relay submission in flight\" channel_id=%s type=%s ops=%d", channelID, relayType, len(ops))
	return channelID, nil
}

// submit drives one relay request to its terminal state. It runs detached
// from the HTTP request that triggered it; navigation away on the client
// does not cancel it.
func (o *RelayOrchestrator) submit(channelID uuid.UUID, relayType string, chainID uint64, entryPoint string, ops []chain.UserOperation) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	resp, err := o.relayer.SubmitUserOperations(ctx, relayerclient.SubmitRequest{
		ChainID:        chainID,
		EntryPoint:     entryPoint,
		UserOperations: ops,
	})
	if err != nil {
		log.Printf("level=error component=relay msg=\"submission failed\" channel_id=%s type=%s err=%v", channelID, relayType, err)
		o.publishTerminal(domain.RelayStatusEvent{ChannelID: channelID, Status: chain.StatusFailed})
		return
	}

	event := domain.RelayStatusEvent{
		ChannelID:       channelID,
		TransactionHash: resp.TransactionHash,
	}
	if resp.Status == chain.StatusSuccess {
		event.Status = chain.StatusSuccess
	} else {
		// Mined but reverted; the hash is still useful to the client.
		event.Status = chain.StatusFailed
	}
	o.publishTerminal(event)
}

// publishTerminal pushes at most one terminal event per channel id. A
// second call for the same channel is dropped. A channel counts as done
// only once the publish succeeds; on failure it stays in the pending set
// so the TTL sweeper can still fail it out later.
func (o *RelayOrchestrator) publishTerminal(event domain.RelayStatusEvent) {
	now := time.Now()

	o.mu.Lock()
	if _, seen := o.done[event.ChannelID]; seen {
		o.mu.Unlock()
		log.Printf("level=warn component=relay msg=\"duplicate terminal event suppressed\" channel_id=%s", event.ChannelID)
		return
	}
	o.done[event.ChannelID] = now
	started, wasPending := o.pending[event.ChannelID]
	delete(o.pending, event.ChannelID)
	for id, published := range o.done {
		if now.Sub(published) > doneRetention {
			delete(o.done, id)
		}
	}
	o.mu.Unlock()

	routingKey := RoutingKeyRelayFailed
	if event.Status == chain.StatusSuccess {
		routingKey = RoutingKeyRelaySuccess
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.producer.Publish(ctx, RelayEventsExchange, routingKey, event); err != nil {
		o.mu.Lock()
		delete(o.done, event.ChannelID)
		if wasPending {
			o.pending[event.ChannelID] = started
		} else {
			o.pending[event.ChannelID] = now
		}
		o.mu.Unlock()
		log.Printf("level=error component=relay msg=\"terminal event publish failed; channel stays pending\" channel_id=%s status=%s err=%v",
			event.ChannelID, event.Status, err)
		return
	}
	log.Printf("level=info component=relay msg=\"terminal event published\" channel_id=%s status=%s tx=%s",
		event.ChannelID, event.Status, event.TransactionHash)
}

func (o *RelayOrchestrator) markPending(channelID uuid.UUID) {
	o.mu.Lock()
	o.pending[channelID] = time.Now()
	o.mu.Unlock()
}

// FailExpiredChannels emits a failed event (no transaction hash) for every
// channel that has been pending longer than ttl. Called by the cron
// sweeper when the channel-TTL policy is enabled.
func (o *RelayOrchestrator) FailExpiredChannels(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	cutoff := time.Now().Add(-ttl)

	o.mu.Lock()
	var expired []uuid.UUID
	for id, started := range o.pending {
		if started.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	o.mu.Unlock()

	for _, id := range expired {
		log.Printf("level=warn component=relay msg=\"channel ttl exceeded; failing out\" channel_id=%s", id)
		o.publishTerminal(domain.RelayStatusEvent{ChannelID: id, Status: chain.StatusFailed})
	}
	return len(expired)
}

func recoverySignatureKey(action string) (string, error) {
	switch action {
	case domain.RecoveryActionGrantGuardian:
		return chain.SigWalletGrantGuardian, nil
	case domain.RecoveryActionRevokeGuardian:
		return chain.SigWalletRevokeGuardian, nil
	case domain.RecoveryActionTransferOwner:
		return chain.SigWalletTransferOwner, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRecoveryAction, action)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
