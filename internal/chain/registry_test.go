package chain

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func TestSignatureTableMatchesContracts(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{SigWalletExecuteUserOp, "executeUserOp(address,uint256,bytes)"},
		{SigWalletGrantGuardian, "grantGuardian(address)"},
		{SigWalletRevokeGuardian, "revokeGuardian(address)"},
		{SigWalletTransferOwner, "transferOwner(address)"},
		{SigERC20Transfer, "transfer(address,uint256)"},
		{SigERC20Approve, "approve(address,uint256)"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := Signature(tt.key)
			if !ok {
				t.Fatalf("signature %q not registered", tt.key)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}

	if got, ok := EventSignature("erc20Transfer"); !ok || got != "Transfer(address,address,uint256)" {
		t.Fatalf("unexpected erc20Transfer event signature: %q ok=%v", got, ok)
	}
}

func TestSignatureUnknownKey(t *testing.T) {
	if _, ok := Signature("walletSelfDestruct"); ok {
		t.Fatal("expected unknown key to miss")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected MustSignature to panic on unknown key")
		}
	}()
	MustSignature("walletSelfDestruct")
}

func TestSelectorKnownVectors(t *testing.T) {
	// Published selectors for the ERC-20 methods.
	tests := []struct {
		key  string
		want string
	}{
		{SigERC20Transfer, "a9059cbb"},
		{SigERC20Approve, "095ea7b3"},
	}

	for _, tt := range tests {
		sel := Selector(tt.key)
		if got := hex.EncodeToString(sel[:]); got != tt.want {
			t.Fatalf("selector for %s: expected %s, got %s", tt.key, tt.want, got)
		}
	}
}

func TestClosedEnumerations(t *testing.T) {
	for _, typ := range []string{TypeGenericRelay, TypeRecoverAccount, TypeNewPayment} {
		if !ValidRelayType(typ) {
			t.Fatalf("expected %q to be a valid relay type", typ)
		}
	}
	if ValidRelayType("teleport") {
		t.Fatal("unexpected relay type accepted")
	}

	for _, s := range []string{StatusPending, StatusSuccess, StatusFailed} {
		if !ValidStatus(s) {
			t.Fatalf("expected %q to be a valid status", s)
		}
	}
	if ValidStatus("completed") {
		t.Fatal("unexpected status accepted")
	}

	if !SupportedChainID(137) || !SupportedChainID(80001) {
		t.Fatal("expected polygon and mumbai to be supported")
	}
	if SupportedChainID(1) {
		t.Fatal("mainnet is not a supported chain")
	}
}

func TestEncodeAddressCall(t *testing.T) {
	guardian := common.HexToAddress("0x1111111111111111111111111111111111111111")

	data, err := EncodeAddressCall(SigWalletGrantGuardian, guardian)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 36 {
		t.Fatalf("expected 36-byte calldata, got %d", len(data))
	}

	wantSel := crypto.Keccak256([]byte("grantGuardian(address)"))[:4]
	if !bytes.Equal(data[:4], wantSel) {
		t.Fatalf("selector mismatch: got %x want %x", data[:4], wantSel)
	}
	if !bytes.Equal(data[4:], common.LeftPadBytes(guardian.Bytes(), 32)) {
		t.Fatalf("argument not left-padded address: %x", data[4:])
	}

	if _, err := EncodeAddressCall(SigERC20Transfer, guardian); err == nil {
		t.Fatal("expected error for non single-address method")
	}
}

func TestEncodeExecuteUserOp(t *testing.T) {
	token := common.HexToAddress("0x2222222222222222222222222222222222222222")
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	inner, err := EncodeERC20Call(SigERC20Transfer, to, big.NewInt(1000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data := EncodeExecuteUserOp(token, nil, inner)

	wantSel := crypto.Keccak256([]byte("executeUserOp(address,uint256,bytes)"))[:4]
	if !bytes.Equal(data[:4], wantSel) {
		t.Fatalf("selector mismatch: got %x want %x", data[:4], wantSel)
	}
	// Head words: target, value, offset 0x60.
	if !bytes.Equal(data[4:36], common.LeftPadBytes(token.Bytes(), 32)) {
		t.Fatal("target word mismatch")
	}
	if !bytes.Equal(data[36:68], make([]byte, 32)) {
		t.Fatal("value word should be zero")
	}
	if data[99] != 0x60 {
		t.Fatalf("offset word should be 0x60, got %x", data[68:100])
	}
	// Tail: length word then payload padded to 32 bytes.
	lenWord := new(big.Int).SetBytes(data[4+96 : 4+128])
	if lenWord.Int64() != int64(len(inner)) {
		t.Fatalf("length word %d, want %d", lenWord.Int64(), len(inner))
	}
	if !bytes.Equal(data[4+128:4+128+len(inner)], inner) {
		t.Fatal("inner calldata not embedded")
	}
	if (len(data)-4)%32 != 0 {
		t.Fatalf("calldata body not word-aligned: %d", len(data)-4)
	}
}

func TestUserOperationHashDependsOnEntryPointAndChain(t *testing.T) {
	op := &UserOperation{
		Sender:               common.HexToAddress("0x4444444444444444444444444444444444444444"),
		Nonce:                big.NewInt(1),
		CallData:             []byte{0x01, 0x02},
		CallGasLimit:         DefaultCallGasLimit,
		VerificationGasLimit: DefaultVerificationGasLimit,
		PreVerificationGas:   DefaultPreVerificationGas,
	}
	ep := common.HexToAddress("0x5555555555555555555555555555555555555555")

	h1 := op.Hash(ep, ChainIDPolygon)
	h2 := op.Hash(ep, ChainIDMumbai)
	if h1 == h2 {
		t.Fatal("hash must bind the chain id")
	}

	other := common.HexToAddress("0x6666666666666666666666666666666666666666")
	if op.Hash(ep, ChainIDPolygon) == op.Hash(other, ChainIDPolygon) {
		t.Fatal("hash must bind the entry point")
	}
	if op.Hash(ep, ChainIDPolygon) != h1 {
		t.Fatal("hash must be deterministic")
	}
}

func TestCounterfactualAddressDeterministic(t *testing.T) {
	initCode := []byte{0x60, 0x80, 0x60, 0x40}
	salt := WalletSalt(
		common.HexToAddress("0x7777777777777777777777777777777777777777"),
		common.HexToAddress("0x8888888888888888888888888888888888888888"),
		common.HexToAddress("0x9999999999999999999999999999999999999999"),
		nil,
		nil,
	)

	a := CounterfactualAddress(initCode, salt)
	b := CounterfactualAddress(initCode, salt)
	if a != b {
		t.Fatal("counterfactual address must be deterministic")
	}
	if a == (common.Address{}) {
		t.Fatal("counterfactual address must not be zero")
	}

	var otherSalt [32]byte
	otherSalt[0] = 1
	if CounterfactualAddress(initCode, otherSalt) == a {
		t.Fatal("different salts must map to different addresses")
	}
}
