/**
 * @description
 * HTTP handlers for the account-recovery and relay endpoints. Recovery is
 * a three-step flow: lookup (address resolution), operations (staging),
 * confirm (password-gated signing and async submission). The terminal
 * result is delivered over the status channel; the status endpoint is a
 * single long poll against the in-process hub.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/app"
	"github.com/hernan-erasmo/stackup/internal/chain"
	"github.com/hernan-erasmo/stackup/internal/domain"
	"github.com/hernan-erasmo/stackup/internal/signer"
	"github.com/hernan-erasmo/stackup/internal/store"
)

// statusPollTimeout bounds one long poll; a client that gets a 204 polls
// again. Kept under typical proxy idle timeouts.
const statusPollTimeout = 25 * time.Second

// RecoverLookupHandler resolves a username to its recovery projection:
// everything about the wallet except the encrypted signer.
func (h *WalletHandlers) RecoverLookupHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoveryLookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Lookup runs unauthenticated; throttle it per username so the flow
	// cannot be used to enumerate accounts.
	if err := h.orchestrator.AllowRecoveryLookup(r.Context(), req.Username); err != nil {
		h.writeError(w, http.StatusTooManyRequests, "Too many recovery attempts. Please wait and try again.")
		return
	}

	wallet, err := h.service.GetWalletForRecovery(r.Context(), req.Username)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidUsername):
			h.writeError(w, http.StatusBadRequest, "Invalid username")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=recover_lookup err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not look up account")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, wallet)
}

// RecoverOperationsHandler stages the recovery operation set. Nothing is
// signed or submitted here; the client gets a channel id and the
// unsigned operations to confirm.
func (h *WalletHandlers) RecoverOperationsHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoveryOperationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	staged, err := h.orchestrator.BuildRecoveryOperations(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownRecoveryAction),
			errors.Is(err, app.ErrUnsupportedChain),
			errors.Is(err, store.ErrInvalidAddress):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, app.ErrNoGuardians):
			h.writeError(w, http.StatusForbidden, "This account has no guardians and cannot be recovered")
		case errors.Is(err, app.ErrRecoveryRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many recovery attempts. Please wait and try again.")
		default:
			log.Printf("level=error component=api endpoint=recover_operations err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not stage recovery")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, staged)
}

// RecoverConfirmHandler authorizes the staged operations with the user's
// password. The response is an acknowledgment only; the result arrives on
// the status channel.
func (h *WalletHandlers) RecoverConfirmHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RecoveryConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChannelID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}

	if err := h.orchestrator.ConfirmRecovery(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, app.ErrEmptyOperationSet):
			h.writeError(w, http.StatusBadRequest, "No operations to confirm")
		case errors.Is(err, signer.ErrWrongPassword):
			h.writeError(w, http.StatusUnauthorized, "Incorrect password")
		case errors.Is(err, app.ErrRecoveryRateLimited):
			h.writeError(w, http.StatusTooManyRequests, "Too many recovery attempts. Please wait and try again.")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=recover_confirm err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not confirm recovery")
		}
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"channelId": req.ChannelID.String(),
		"status":    chain.StatusPending,
	})
}

// RelayStatusHandler long-polls the status hub for one terminal event.
// 200 with the event if it arrives in time, 204 if the channel is still
// pending when the poll expires.
func (h *WalletHandlers) RelayStatusHandler(w http.ResponseWriter, r *http.Request) {
	channelID, err := uuid.Parse(chi.URLParam(r, "channelID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid channel ID format")
		return
	}

	events, cancel := h.hub.Subscribe(channelID)
	defer cancel()

	select {
	case event, ok := <-events:
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.hub.Forget(channelID)
		h.writeJSON(w, http.StatusOK, event)
	case <-time.After(statusPollTimeout):
		w.WriteHeader(http.StatusNoContent)
	case <-r.Context().Done():
		// Client navigated away; the in-flight submission continues.
	}
}

// relayRequestBody is the generic relay submission DTO.
type relayRequestBody struct {
	Type           string                `json:"type"`
	ChainID        uint64                `json:"chain_id"`
	EntryPoint     string                `json:"entryPoint"`
	UserOperations []chain.UserOperation `json:"userOperations"`
}

// RelayHandler submits an already-signed operation set (genericRelay and
// newPayment types). Returns 202 with the channel id.
func (h *WalletHandlers) RelayHandler(w http.ResponseWriter, r *http.Request) {
	var req relayRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	channelID, err := h.orchestrator.SubmitSignedRelay(r.Context(), req.Type, req.ChainID, req.EntryPoint, req.UserOperations)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnknownRelayType),
			errors.Is(err, app.ErrUnsupportedChain),
			errors.Is(err, app.ErrEmptyOperationSet),
			errors.Is(err, store.ErrInvalidAddress):
			h.writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("level=error component=api endpoint=relay err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not submit relay")
		}
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{
		"channelId": channelID.String(),
		"status":    chain.StatusPending,
	})
}
