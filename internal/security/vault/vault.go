// Package vault encrypts secrets at rest. Merchant webhook endpoints travel
// through a Provider before hitting the database.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey      = errors.New("vault: invalid encryption key")
	ErrInvalidPayload  = errors.New("vault: invalid encrypted payload")
	ErrDecryption      = errors.New("vault: decryption failed")
	ErrUnknownProvider = errors.New("vault: unknown provider")
)

// Provider defines the interface for encryption/decryption backends.
type Provider interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(data []byte) ([]byte, error)
}

// Config holds configuration for the vault factory.
type Config struct {
	Provider string // "aes" or "chacha"
	Key      string
}

// NewFactory creates a Provider based on configuration. Both backends derive
// a 32-byte key from the configured string, so any .env value works.
func NewFactory(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "chacha":
		return newChaChaVault(cfg.Key)
	case "aes", "":
		return newAESVault(cfg.Key)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

func deriveKey(keyStr string) ([]byte, error) {
	if strings.TrimSpace(keyStr) == "" {
		return nil, ErrInvalidKey
	}
	sum := sha256.Sum256([]byte(keyStr))
	return sum[:], nil
}

type encryptedData struct {
	Version    int    `json:"v"`
	Cipher     string `json:"a"`
	Nonce      string `json:"n"`
	Ciphertext string `json:"c"`
}

func seal(aead cipher.AEAD, cipherName string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	payload := encryptedData{
		Version:    1,
		Cipher:     cipherName,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(aead.Seal(nil, nonce, plaintext, nil)),
	}
	return json.Marshal(payload)
}

func open(aead cipher.AEAD, cipherName string, data []byte) ([]byte, error) {
	var payload encryptedData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, ErrInvalidPayload
	}
	if payload.Version != 1 || payload.Cipher != cipherName {
		return nil, ErrInvalidPayload
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil || len(nonce) != aead.NonceSize() {
		return nil, ErrInvalidPayload
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return nil, ErrInvalidPayload
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plaintext, nil
}

// AESVault implements Provider using AES-256-GCM.
type AESVault struct {
	aead cipher.AEAD
}

func newAESVault(keyStr string) (*AESVault, error) {
	key, err := deriveKey(keyStr)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESVault{aead: gcm}, nil
}

func (v *AESVault) Encrypt(plaintext []byte) ([]byte, error) {
	return seal(v.aead, "aes-gcm", plaintext)
}

func (v *AESVault) Decrypt(data []byte) ([]byte, error) {
	return open(v.aead, "aes-gcm", data)
}

// ChaChaVault implements Provider using ChaCha20-Poly1305.
type ChaChaVault struct {
	aead cipher.AEAD
}

func newChaChaVault(keyStr string) (*ChaChaVault, error) {
	key, err := deriveKey(keyStr)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return &ChaChaVault{aead: aead}, nil
}

func (v *ChaChaVault) Encrypt(plaintext []byte) ([]byte, error) {
	return seal(v.aead, "chacha20-poly1305", plaintext)
}

func (v *ChaChaVault) Decrypt(data []byte) ([]byte, error) {
	return open(v.aead, "chacha20-poly1305", data)
}
