/**
 * @description
 * This file defines the core domain models for the wallet backend: user
 * records, smart-contract wallet records, and the DTOs exchanged with the
 * API layer. Distinct request/response types keep the web layer decoupled
 * from the database rows.
 *
 * @notes
 * - Address fields are stored as 0x-prefixed hex strings and validated at
 *   write time; rejecting malformed input is a hard invariant.
 * - The encrypted signer blob is opaque base64 ciphertext. The service
 *   never sees the plaintext key.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record. The wallet reference is optional until
// onboarding completes.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Username  string     `json:"username"`
	Email     *string    `json:"email,omitempty"`
	WalletID  *uuid.UUID `json:"wallet_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Wallet is the persistent representation of one smart-contract wallet,
// one per user. The init* fields are the deployment parameters the proxy
// was (or will be) created with.
type Wallet struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	WalletAddress      string    `json:"walletAddress"`
	InitImplementation string    `json:"initImplementation"`
	InitEntryPoint     string    `json:"initEntryPoint"`
	InitOwner          string    `json:"initOwner"`
	InitGuardians      []string  `json:"initGuardians"`
	EncryptedSigner    string    `json:"encryptedSigner,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateUserRequest is the signup DTO.
type CreateUserRequest struct {
	Username string  `json:"username"`
	Email    *string `json:"email,omitempty"`
}

// CreateWalletRequest carries the deployment parameters and the encrypted
// signer produced client-side during onboarding.
type CreateWalletRequest struct {
	WalletAddress      string   `json:"walletAddress"`
	InitImplementation string   `json:"initImplementation"`
	InitEntryPoint     string   `json:"initEntryPoint"`
	InitOwner          string   `json:"initOwner"`
	InitGuardians      []string `json:"initGuardians"`
	EncryptedSigner    string   `json:"encryptedSigner"`
}

// UserPatch is an explicit patch: Set assigns fields, Unset clears them.
// Unset is applied after Set, so an unset always wins over a same-call
// assignment.
type UserPatch struct {
	Set   map[string]any `json:"set,omitempty"`
	Unset []string       `json:"unset,omitempty"`
}

// WalletOwner resolves a wallet address back to its owning user. The
// public search variant leaves UserID nil; trusted callers get it filled.
type WalletOwner struct {
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	Username      string     `json:"username"`
	WalletAddress string     `json:"walletAddress"`
}

// ListOptions controls pagination for user queries.
type ListOptions struct {
	Limit int
	Page  int
}
