package signer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw := crypto.FromECDSA(key)

	blob, err := Encrypt(raw, "correct horse")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	got, err := Decrypt(blob, "correct horse")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatal("decrypted key does not match original")
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	blob, err := Encrypt(crypto.FromECDSA(key), "right")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if _, err := Decrypt(blob, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestDecryptTruncatedBlob(t *testing.T) {
	if _, err := Decrypt("c2hvcnQ=", "any"); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword for truncated blob, got %v", err)
	}
}

func TestSignDigestZeroesKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw := crypto.FromECDSA(key)
	keyCopy := make([]byte, len(raw))
	copy(keyCopy, raw)

	digest := crypto.Keccak256([]byte("message"))
	sig, err := SignDigest(digest, keyCopy)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}

	for _, b := range keyCopy {
		if b != 0 {
			t.Fatal("private key material not zeroed after signing")
		}
	}

	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		t.Fatalf("recover pubkey: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != crypto.PubkeyToAddress(key.PublicKey) {
		t.Fatal("signature does not recover to signer address")
	}
}
