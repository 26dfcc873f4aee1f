/**
 * @description
 * EIP-4337 style UserOperation model and the calldata encoders for the
 * registered wallet and ERC-20 methods. The relay orchestrator builds
 * operations here and hands them to the relayer for submission; nothing in
 * this file talks to the network.
 *
 * @dependencies
 * - math/big: nonce and value arithmetic.
 * - github.com/ethereum/go-ethereum/common, crypto: addresses, Keccak-256.
 */

package chain

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// UserOperation is a structured, not-yet-mined description of an action to
// execute through the wallet's entry point.
type UserOperation struct {
	Sender               common.Address `json:"sender"`
	Nonce                *big.Int       `json:"nonce"`
	InitCode             hexutil.Bytes  `json:"initCode"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         uint64         `json:"callGasLimit"`
	VerificationGasLimit uint64         `json:"verificationGasLimit"`
	PreVerificationGas   uint64         `json:"preVerificationGas"`
	MaxFeePerGas         *big.Int       `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *big.Int       `json:"maxPriorityFeePerGas"`
	PaymasterAndData     hexutil.Bytes  `json:"paymasterAndData"`
	Signature            hexutil.Bytes  `json:"signature"`
}

// Default gas limits applied to relay-built operations. The bundler may
// re-estimate; these only need to be high enough for guardian rotation.
const (
	DefaultCallGasLimit         = 200000
	DefaultVerificationGasLimit = 150000
	DefaultPreVerificationGas   = 21000
)

// Hash returns the digest signed by the wallet owner for this operation on
// the given entry point and chain.
func (op *UserOperation) Hash(entryPoint common.Address, chainID uint64) common.Hash {
	packed := make([]byte, 0, 32*9)
	packed = append(packed, common.LeftPadBytes(op.Sender.Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(bigOrZero(op.Nonce).Bytes(), 32)...)
	packed = append(packed, crypto.Keccak256(op.InitCode)...)
	packed = append(packed, crypto.Keccak256(op.CallData)...)
	packed = append(packed, common.LeftPadBytes(new(big.Int).SetUint64(op.CallGasLimit).Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(new(big.Int).SetUint64(op.VerificationGasLimit).Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(new(big.Int).SetUint64(op.PreVerificationGas).Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(bigOrZero(op.MaxFeePerGas).Bytes(), 32)...)
	packed = append(packed, common.LeftPadBytes(bigOrZero(op.MaxPriorityFeePerGas).Bytes(), 32)...)
	packed = append(packed, crypto.Keccak256(op.PaymasterAndData)...)

	inner := crypto.Keccak256(packed)
	outer := make([]byte, 0, 32*3)
	outer = append(outer, inner...)
	outer = append(outer, common.LeftPadBytes(entryPoint.Bytes(), 32)...)
	outer = append(outer, common.LeftPadBytes(new(big.Int).SetUint64(chainID).Bytes(), 32)...)
	return crypto.Keccak256Hash(outer)
}

// MarshalForLog renders the operation as compact JSON for logfmt lines.
func (op *UserOperation) MarshalForLog() string {
	b, err := json.Marshal(op)
	if err != nil {
		return fmt.Sprintf("%+v", op)
	}
	return string(b)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// EncodeAddressCall builds calldata for a registered single-address method
// such as grantGuardian(address) or transferOwner(address).
func EncodeAddressCall(key string, addr common.Address) ([]byte, error) {
	switch key {
	case SigWalletGrantGuardian, SigWalletRevokeGuardian, SigWalletTransferOwner:
	default:
		return nil, fmt.Errorf("chain: %q is not a single-address method", key)
	}
	sel := Selector(key)
	data := make([]byte, 0, 4+32)
	data = append(data, sel[:]...)
	data = append(data, common.LeftPadBytes(addr.Bytes(), 32)...)
	return data, nil
}

// EncodeERC20Call builds calldata for transfer(address,uint256) or
// approve(address,uint256).
func EncodeERC20Call(key string, to common.Address, amount *big.Int) ([]byte, error) {
	switch key {
	case SigERC20Transfer, SigERC20Approve:
	default:
		return nil, fmt.Errorf("chain: %q is not an erc20 method", key)
	}
	sel := Selector(key)
	data := make([]byte, 0, 4+64)
	data = append(data, sel[:]...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(bigOrZero(amount).Bytes(), 32)...)
	return data, nil
}

// EncodeExecuteUserOp wraps an inner call in executeUserOp(address,uint256,bytes)
// so the wallet proxies it to the target contract.
func EncodeExecuteUserOp(target common.Address, value *big.Int, innerCall []byte) []byte {
	sel := Selector(SigWalletExecuteUserOp)

	// Head: target, value, offset to bytes payload. Tail: length + padded data.
	padded := len(innerCall)
	if rem := padded % 32; rem != 0 {
		padded += 32 - rem
	}
	data := make([]byte, 0, 4+96+32+padded)
	data = append(data, sel[:]...)
	data = append(data, common.LeftPadBytes(target.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(bigOrZero(value).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(96).Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(big.NewInt(int64(len(innerCall))).Bytes(), 32)...)
	data = append(data, innerCall...)
	data = append(data, make([]byte, padded-len(innerCall))...)
	return data
}
