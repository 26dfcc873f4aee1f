/**
 * @description
 * Write-time validation for wallet records. Malformed addresses and a
 * non-base64 encrypted signer are rejected before anything reaches the
 * database; this is a hard invariant of the wallet store, not a soft
 * warning.
 */

package store

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hernan-erasmo/stackup/internal/domain"
)

// ValidateWallet checks every address-shaped field and the encrypted
// signer encoding. It returns ErrInvalidAddress or ErrInvalidEncryptedSigner
// wrapped with the offending field name.
func ValidateWallet(req domain.CreateWalletRequest) error {
	addressFields := []struct {
		name  string
		value string
	}{
		{"walletAddress", req.WalletAddress},
		{"initImplementation", req.InitImplementation},
		{"initEntryPoint", req.InitEntryPoint},
		{"initOwner", req.InitOwner},
	}
	for _, f := range addressFields {
		if !common.IsHexAddress(strings.TrimSpace(f.value)) {
			return fmt.Errorf("%s: %w", f.name, ErrInvalidAddress)
		}
	}
	for i, g := range req.InitGuardians {
		if !common.IsHexAddress(strings.TrimSpace(g)) {
			return fmt.Errorf("initGuardians[%d]: %w", i, ErrInvalidAddress)
		}
	}

	signer := strings.TrimSpace(req.EncryptedSigner)
	if signer == "" {
		return fmt.Errorf("encryptedSigner: %w", ErrInvalidEncryptedSigner)
	}
	if _, err := base64.StdEncoding.DecodeString(signer); err != nil {
		return fmt.Errorf("encryptedSigner: %w", ErrInvalidEncryptedSigner)
	}
	return nil
}
