/**
 * @description
 * This file contains the HTTP handlers for the user directory and wallet
 * record endpoints. Handlers parse the request, call the application
 * service, and map the service's sentinel errors onto HTTP statuses.
 *
 * @dependencies
 * - encoding/json, errors, log, net/http, strings: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: Service logic, models,
 *   and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/app"
	"github.com/hernan-erasmo/stackup/internal/domain"
	"github.com/hernan-erasmo/stackup/internal/store"
)

// WalletHandlers holds the services the HTTP layer dispatches into.
type WalletHandlers struct {
	service      *app.Service
	orchestrator *app.RelayOrchestrator
	hub          *app.StatusHub
}

// NewWalletHandlers creates a new instance of WalletHandlers.
func NewWalletHandlers(service *app.Service, orchestrator *app.RelayOrchestrator, hub *app.StatusHub) *WalletHandlers {
	return &WalletHandlers{service: service, orchestrator: orchestrator, hub: hub}
}

// CreateUserHandler handles signup requests.
func (h *WalletHandlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidUsername):
			h.writeError(w, http.StatusBadRequest, "Invalid username")
		case errors.Is(err, app.ErrUsernameBlacklisted):
			h.writeError(w, http.StatusForbidden, "That username is not available")
		case errors.Is(err, store.ErrUsernameTaken):
			h.writeError(w, http.StatusConflict, "Username already taken")
		default:
			log.Printf("level=error component=api endpoint=create_user err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not create user")
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// GetUserHandler returns a single user record.
func (h *WalletHandlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_user user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not fetch user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// ListUsersHandler returns one page of users.
func (h *WalletHandlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	opts := domain.ListOptions{}
	if v := r.URL.Query().Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("page"); v != "" {
		opts.Page, _ = strconv.Atoi(v)
	}

	users, err := h.service.ListUsers(r.Context(), opts)
	if err != nil {
		log.Printf("level=error component=api endpoint=list_users err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Could not list users")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

// UpdateUserHandler applies an explicit set/unset patch to a user record.
func (h *WalletHandlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	var patch domain.UserPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), userID, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidPatchField):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=update_user user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not update user")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// DeleteUserHandler removes a user and their wallet.
func (h *WalletHandlers) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			h.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Printf("level=error component=api endpoint=delete_user user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateWalletHandler registers the wallet produced during onboarding.
func (h *WalletHandlers) CreateWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	var req domain.CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wallet, err := h.service.CreateWallet(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidAddress), errors.Is(err, store.ErrInvalidEncryptedSigner):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, store.ErrWalletExists):
			h.writeError(w, http.StatusConflict, "User already has a wallet")
		default:
			log.Printf("level=error component=api endpoint=create_wallet user_id=%s err=%v", userID, err)
			h.writeError(w, http.StatusInternalServerError, "Could not create wallet")
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, wallet)
}

// GetWalletHandler returns the full wallet record for a user.
func (h *WalletHandlers) GetWalletHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	wallet, err := h.service.GetWalletByOwner(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrWalletNotFound) {
			h.writeError(w, http.StatusNotFound, "Wallet not found")
			return
		}
		log.Printf("level=error component=api endpoint=get_wallet user_id=%s err=%v", userID, err)
		h.writeError(w, http.StatusInternalServerError, "Could not fetch wallet")
		return
	}
	h.writeJSON(w, http.StatusOK, wallet)
}

// SearchUsersHandler resolves wallet addresses back to usernames, for
// labelling payment counterparties. Internal user ids are never exposed
// over HTTP.
func (h *WalletHandlers) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("addresses")
	if strings.TrimSpace(raw) == "" {
		h.writeError(w, http.StatusBadRequest, "Query parameter 'addresses' is required")
		return
	}
	addresses := strings.Split(raw, ",")

	owners, err := h.service.SearchByWalletAddresses(r.Context(), addresses, false)
	if err != nil {
		log.Printf("level=error component=api endpoint=search_users err=%v", err)
		h.writeError(w, http.StatusBadRequest, "Could not search users")
		return
	}
	if owners == nil {
		owners = []domain.WalletOwner{}
	}
	h.writeJSON(w, http.StatusOK, owners)
}

// LoginSignerHandler returns the login projection: only the encrypted
// signer blob for the given username. Decryption happens client-side.
func (h *WalletHandlers) LoginSignerHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	wallet, err := h.service.GetWalletForLogin(r.Context(), req.Username)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidUsername):
			h.writeError(w, http.StatusBadRequest, "Invalid username")
		case errors.Is(err, store.ErrUserNotFound):
			h.writeError(w, http.StatusNotFound, "User not found")
		default:
			log.Printf("level=error component=api endpoint=login_signer err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Could not fetch signer")
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"encryptedSigner": wallet.EncryptedSigner})
}

func (h *WalletHandlers) parseUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

// writeJSON is a helper for writing JSON responses.
func (h *WalletHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *WalletHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
