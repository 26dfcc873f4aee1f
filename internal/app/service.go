/**
 * @description
 * This file contains the user-directory and wallet-record business logic.
 * The `Service` struct wraps the repository with the policy checks the
 * database cannot express: username normalization and blacklisting, and
 * write-time wallet validation.
 *
 * Key features:
 * - createUser enforces both the uniqueness and blacklist policies.
 * - Wallet creation validates address and encoding invariants before any
 *   row is written, and enforces one wallet per user.
 * - Restricted wallet projections for login and recovery flows.
 *
 * @dependencies
 * - context, errors, fmt, log, strings: Standard Go libraries.
 * - github.com/google/uuid: ID generation.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/domain"
	"github.com/hernan-erasmo/stackup/internal/store"
)

var (
	ErrUsernameBlacklisted = errors.New("that username is not allowed")
	ErrInvalidUsername     = errors.New("invalid username")
)

// Service provides the user directory and wallet record operations.
type Service struct {
	repo store.Repository
}

// NewService creates a new directory service instance.
func NewService(repo store.Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeUsername lowercases and trims a username and rejects shapes
// that would collide after normalization.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if username == "" {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_':
		default:
			return "", ErrInvalidUsername
		}
	}
	if strings.HasPrefix(username, "_") || strings.HasSuffix(username, "_") ||
		strings.HasPrefix(username, ".") || strings.HasSuffix(username, ".") {
		return "", ErrInvalidUsername
	}
	return username, nil
}

// CreateUser registers a new identity. Uniqueness is enforced by the
// store; the blacklist check runs independently so both policies hold.
func (s *Service) CreateUser(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	username, err := NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	if IsBlacklistedUsername(username) {
		return nil, ErrUsernameBlacklisted
	}

	user := &domain.User{
		ID:       uuid.New(),
		Username: username,
		Email:    req.Email,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Printf("level=info component=directory msg=\"user created\" user_id=%s username=%s", user.ID, user.Username)
	return user, nil
}

// GetUserByID returns one user record.
func (s *Service) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// GetUserByUsername returns one user record by username.
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.repo.FindUserByUsername(ctx, username)
}

// ListUsers returns a page of users.
func (s *Service) ListUsers(ctx context.Context, opts domain.ListOptions) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, opts)
}

// UpdateUser applies an explicit set/unset patch; unset wins over a
// same-call assignment.
func (s *Service) UpdateUser(ctx context.Context, userID uuid.UUID, patch domain.UserPatch) (*domain.User, error) {
	return s.repo.UpdateUser(ctx, userID, patch)
}

// DeleteUser removes a user and their wallet.
func (s *Service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		return err
	}
	log.Printf("level=info component=directory msg=\"user deleted\" user_id=%s", userID)
	return nil
}

// CreateWallet validates deployment parameters and persists the wallet.
// At most one wallet per user; a second attempt fails with ErrWalletExists.
func (s *Service) CreateWallet(ctx context.Context, userID uuid.UUID, req domain.CreateWalletRequest) (*domain.Wallet, error) {
	if err := store.ValidateWallet(req); err != nil {
		return nil, err
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}

	wallet := &domain.Wallet{
		ID:                 uuid.New(),
		UserID:             userID,
		WalletAddress:      strings.TrimSpace(req.WalletAddress),
		InitImplementation: strings.TrimSpace(req.InitImplementation),
		InitEntryPoint:     strings.TrimSpace(req.InitEntryPoint),
		InitOwner:          strings.TrimSpace(req.InitOwner),
		InitGuardians:      trimAll(req.InitGuardians),
		EncryptedSigner:    strings.TrimSpace(req.EncryptedSigner),
	}
	if err := s.repo.CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}

	log.Printf("level=info component=directory msg=\"wallet created\" user_id=%s wallet=%s guardians=%d",
		userID, wallet.WalletAddress, len(wallet.InitGuardians))
	return wallet, nil
}

// GetWalletByOwner returns the full wallet record for a user.
func (s *Service) GetWalletByOwner(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	return s.repo.FindWalletByOwner(ctx, userID)
}

// GetWalletForLogin returns only the encrypted signer projection.
func (s *Service) GetWalletForLogin(ctx context.Context, username string) (*domain.Wallet, error) {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return s.repo.FindWalletForLogin(ctx, normalized)
}

// GetWalletForRecovery returns everything except the encrypted signer.
func (s *Service) GetWalletForRecovery(ctx context.Context, username string) (*domain.Wallet, error) {
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	return s.repo.FindWalletForRecovery(ctx, normalized)
}

// SearchByWalletAddresses resolves counterparty usernames for payment
// activity. Public callers never receive internal user ids.
func (s *Service) SearchByWalletAddresses(ctx context.Context, addresses []string, trusted bool) ([]domain.WalletOwner, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if len(addresses) > 100 {
		return nil, fmt.Errorf("too many addresses: %d", len(addresses))
	}
	return s.repo.FindUsersByWalletAddresses(ctx, addresses, trusted)
}

func trimAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
