// Package vault seals ERP API tokens at rest with AES-256-GCM.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/ordersync/internal/domain/integration"
)

const (
	keySize = 32
	ivSize  = 16
	tagSize = 16
)

// ErrDecryptionFailed is returned for any secret that does not authenticate
var ErrDecryptionFailed = errors.New("vault: decryption failed")

// Ensure Vault implements SecretCipher
var _ integration.SecretCipher = (*Vault)(nil)

// Vault encrypts and decrypts secrets with a single master key
type Vault struct {
	aead cipher.AEAD
}

// NewVault creates a vault from a 64-character hex master key
func NewVault(masterKeyHex string) (*Vault, error) {
	masterKeyHex = strings.TrimSpace(masterKeyHex)
	if masterKeyHex == "" {
		return nil, integration.NewConfigurationError("vault.master_key", "master key is not set")
	}
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, integration.NewConfigurationError("vault.master_key", "master key is not valid hex")
	}
	if len(key) != keySize {
		return nil, integration.NewConfigurationError("vault.master_key",
			fmt.Sprintf("master key must be %d bytes, got %d", keySize, len(key)))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to create gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext with a fresh random IV
func (v *Vault) Encrypt(plaintext string) (integration.EncryptedSecret, error) {
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return integration.EncryptedSecret{}, fmt.Errorf("vault: failed to generate iv: %w", err)
	}

	sealed := v.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return integration.EncryptedSecret{
		Ciphertext: hex.EncodeToString(ciphertext),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(tag),
	}, nil
}

// Decrypt opens a sealed secret. Any tampering yields ErrDecryptionFailed and no data.
func (v *Vault) Decrypt(secret integration.EncryptedSecret) (string, error) {
	ciphertext, err := hex.DecodeString(secret.Ciphertext)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	iv, err := hex.DecodeString(secret.IV)
	if err != nil || len(iv) != ivSize {
		return "", ErrDecryptionFailed
	}
	tag, err := hex.DecodeString(secret.AuthTag)
	if err != nil || len(tag) != tagSize {
		return "", ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := v.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

// MaskForDisplay shows the first 8 and last 4 characters of a token.
// Tokens of 12 characters or fewer are fully masked.
func MaskForDisplay(token string) string {
	runes := []rune(token)
	if len(runes) <= 12 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:8]) + "****" + string(runes[len(runes)-4:])
}

// Mask is MaskForDisplay as a method so the vault satisfies the application's credential port
func (v *Vault) Mask(token string) string {
	return MaskForDisplay(token)
}
