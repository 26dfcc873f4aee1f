package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SingletonFactoryAddress is the ERC-2470 deployer every wallet proxy is
// created through. Counterfactual wallet addresses are computed against it.
var SingletonFactoryAddress = common.HexToAddress("0xce0042B868300000d44A59004Da54A005ffdcf9f")

// CounterfactualAddress computes the CREATE2 address a proxy with the given
// init code and salt will deploy to, before anything is on chain.
func CounterfactualAddress(initCode []byte, salt [32]byte) common.Address {
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, SingletonFactoryAddress.Bytes()...)
	buf = append(buf, salt[:]...)
	buf = append(buf, crypto.Keccak256(initCode)...)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}

// WalletSalt derives the deterministic salt for a wallet deployed with the
// given init parameters, matching the factory's salt scheme.
func WalletSalt(implementation, entryPoint, owner common.Address, guardians []common.Address, index *big.Int) [32]byte {
	buf := make([]byte, 0, 32*(4+len(guardians)))
	buf = append(buf, common.LeftPadBytes(implementation.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(entryPoint.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(owner.Bytes(), 32)...)
	for _, g := range guardians {
		buf = append(buf, common.LeftPadBytes(g.Bytes(), 32)...)
	}
	buf = append(buf, common.LeftPadBytes(bigOrZero(index).Bytes(), 32)...)

	var salt [32]byte
	copy(salt[:], crypto.Keccak256(buf))
	return salt
}
