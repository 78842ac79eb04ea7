// Package vault encrypts connection secrets at rest. It knows nothing about
// SQL or schemas; it is a pure function of key material and input.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// appSalt is the fixed application-level KDF salt. The key must be
	// stable across restarts, so salts are never generated per record.
	appSalt = "querydeck.vault.v1"

	keyLen   = 32
	nonceLen = 12
	tagLen   = 16

	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// DecryptionError signals unreadable credential material: malformed input or
// authentication-tag mismatch. Decryption fails closed; callers must never
// fall back to treating ciphertext as plaintext.
type DecryptionError struct {
	Reason string
}

func (e *DecryptionError) Error() string {
	return "decryption failed: " + e.Reason
}

// Vault holds the derived key, computed once at construction and safe for
// concurrent read access.
type Vault struct {
	aead cipher.AEAD
}

func New(masterSecret string) (*Vault, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("vault master secret is required")
	}
	key, err := scrypt.Key([]byte(masterSecret), []byte(appSalt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random nonce. The output layout is
// base64(salt || nonce || tag || payload), self-describing so Decrypt needs
// no side-channel metadata.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	payload := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	buf := make([]byte, 0, len(appSalt)+nonceLen+tagLen+len(payload))
	buf = append(buf, []byte(appSalt)...)
	buf = append(buf, nonce...)
	buf = append(buf, tag...)
	buf = append(buf, payload...)

	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decrypt reverses Encrypt, failing with a DecryptionError on any malformed
// or tampered input.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Reason: "invalid base64 payload"}
	}
	if len(raw) < len(appSalt)+nonceLen+tagLen {
		return "", &DecryptionError{Reason: "payload too short"}
	}
	if string(raw[:len(appSalt)]) != appSalt {
		return "", &DecryptionError{Reason: "unrecognized key derivation salt"}
	}

	rest := raw[len(appSalt):]
	nonce := rest[:nonceLen]
	tag := rest[nonceLen : nonceLen+tagLen]
	payload := rest[nonceLen+tagLen:]

	sealed := make([]byte, 0, len(payload)+tagLen)
	sealed = append(sealed, payload...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &DecryptionError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}
