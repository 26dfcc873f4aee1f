/**
 * @description
 * This file holds the static registry consulted by the relay builder: the
 * canonical function and event signatures the deployed wallet contracts
 * expect, the closed set of relay types and transaction statuses, and the
 * chain ids the service accepts. The signature strings must match the
 * contracts byte-for-byte; they are the source of the 4-byte selectors
 * used when encoding calldata.
 *
 * @dependencies
 * - github.com/ethereum/go-ethereum/crypto: Keccak-256 for selectors.
 */

package chain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Symbolic signature keys. Callers reference these instead of raw strings
// so an unknown key is a compile-time or startup-time failure, never a
// malformed on-chain call.
const (
	SigWalletExecuteUserOp  = "walletExecuteUserOp"
	SigWalletGrantGuardian  = "walletGrantGuardian"
	SigWalletRevokeGuardian = "walletRevokeGuardian"
	SigWalletTransferOwner  = "walletTransferOwner"
	SigERC20Transfer        = "erc20Transfer"
	SigERC20Approve         = "erc20Approve"
)

var functionSignatures = map[string]string{
	SigWalletExecuteUserOp:  "executeUserOp(address,uint256,bytes)",
	SigWalletGrantGuardian:  "grantGuardian(address)",
	SigWalletRevokeGuardian: "revokeGuardian(address)",
	SigWalletTransferOwner:  "transferOwner(address)",
	SigERC20Transfer:        "transfer(address,uint256)",
	SigERC20Approve:         "approve(address,uint256)",
}

var eventSignatures = map[string]string{
	"erc20Transfer": "Transfer(address,address,uint256)",
}

// Relay request types.
const (
	TypeGenericRelay   = "genericRelay"
	TypeRecoverAccount = "recoverAccount"
	TypeNewPayment     = "newPayment"
)

// Transaction statuses pushed over the status channel.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Supported chain ids.
const (
	ChainIDPolygon uint64 = 137
	ChainIDMumbai  uint64 = 80001
)

// Signature returns the canonical signature string for a symbolic key.
func Signature(key string) (string, bool) {
	sig, ok := functionSignatures[key]
	return sig, ok
}

// MustSignature is Signature for keys that are known at compile time.
// Passing an unregistered key is a programmer error.
func MustSignature(key string) string {
	sig, ok := functionSignatures[key]
	if !ok {
		panic(fmt.Sprintf("chain: unregistered function signature key %q", key))
	}
	return sig
}

// EventSignature returns the canonical event signature for a symbolic key.
func EventSignature(key string) (string, bool) {
	sig, ok := eventSignatures[key]
	return sig, ok
}

// Selector returns the 4-byte function selector for a registered key.
func Selector(key string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(MustSignature(key)))[:4])
	return sel
}

// ValidRelayType reports whether t is one of the closed set of relay types.
func ValidRelayType(t string) bool {
	switch t {
	case TypeGenericRelay, TypeRecoverAccount, TypeNewPayment:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the closed set of statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// SupportedChainID reports whether the service relays to the given chain.
func SupportedChainID(id uint64) bool {
	return id == ChainIDPolygon || id == ChainIDMumbai
}
