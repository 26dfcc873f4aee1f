/**
 * @description
 * Password-gated access to the wallet's signing key. The backend stores
 * only an encrypted signer blob (base64 of salt || nonce || AES-GCM
 * ciphertext of the secp256k1 private key). Confirming a relay releases
 * the blob for one signing pass; the plaintext key never leaves this
 * package and is zeroed after use.
 *
 * @dependencies
 * - golang.org/x/crypto/argon2: password -> key derivation.
 * - github.com/ethereum/go-ethereum/crypto: secp256k1 signing.
 */

package signer

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/argon2"
)

const (
	saltLen  = 16
	nonceLen = 12
)

var ErrWrongPassword = errors.New("password does not unlock signer")

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

// Encrypt seals a private key under a password-derived key. Used by
// onboarding and by signer rotation after a completed recovery.
func Encrypt(privateKey []byte, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	sealed := gcm.Seal(nil, nonce, privateKey, nil)
	blob := make([]byte, 0, saltLen+nonceLen+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens an encrypted signer blob. A wrong password surfaces as
// ErrWrongPassword, indistinguishable from a tampered blob.
func Decrypt(encryptedSigner, password string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encryptedSigner)
	if err != nil {
		return nil, fmt.Errorf("decode signer blob: %w", err)
	}
	if len(blob) < saltLen+nonceLen+1 {
		return nil, ErrWrongPassword
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+nonceLen]
	sealed := blob[saltLen+nonceLen:]

	block, err := aes.NewCipher(deriveKey(password, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}

// SignDigest signs a 32-byte digest with the given private key bytes and
// zeroes the key material before returning.
func SignDigest(digest []byte, privateKey []byte) ([]byte, error) {
	defer zero(privateKey)

	key, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return sig, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
