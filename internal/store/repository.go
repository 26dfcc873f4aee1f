/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access the wallet backend needs. Business logic in `internal/app`
 * depends on this interface rather than on PostgreSQL directly, which is
 * what lets the orchestrator tests run against small stubs.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: ID handling.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/hernan-erasmo/stackup/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User directory
	CreateUser(ctx context.Context, user *domain.User) error
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, opts domain.ListOptions) ([]domain.User, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, patch domain.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error

	// Wallet records
	CreateWallet(ctx context.Context, wallet *domain.Wallet) error
	FindWalletByOwner(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)

	// Restricted projections used by login and recovery. Login gets only
	// the encrypted signer; recovery gets everything except it.
	FindWalletForLogin(ctx context.Context, username string) (*domain.Wallet, error)
	FindWalletForRecovery(ctx context.Context, username string) (*domain.Wallet, error)

	// Set-membership join resolving counterparty usernames for payments.
	FindUsersByWalletAddresses(ctx context.Context, addresses []string, withUserID bool) ([]domain.WalletOwner, error)
}
