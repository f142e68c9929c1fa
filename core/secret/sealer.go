package secret

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

// Sealer encrypts credential values before they reach the database.
type Sealer interface {
	Seal(value string) (string, error)
	Open(sealed string) (string, error)
}

type xchachaSealer struct {
	key []byte
}

// NewSealer builds an XChaCha20-Poly1305 sealer from a hex-encoded 32-byte key.
// An empty key yields a pass-through sealer for local development.
func NewSealer(hexKey string) (Sealer, error) {
	if hexKey == "" {
		return plainSealer{}, nil
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode token key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &xchachaSealer{key: key}, nil
}

func (s *xchachaSealer) Seal(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("new aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(value)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	// nonce || ciphertext
	payload := aead.Seal(nonce, nonce, []byte(value), nil)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(payload), nil
}

func (s *xchachaSealer) Open(sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		// Rows written before sealing was enabled.
		return sealed, nil
	}

	payload, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("new aead: %w", err)
	}
	if len(payload) < aead.NonceSize() {
		return "", fmt.Errorf("sealed value is too short")
	}

	nonce, ciphertext := payload[:aead.NonceSize()], payload[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt sealed value: %w", err)
	}
	return string(plaintext), nil
}

type plainSealer struct{}

func (plainSealer) Seal(value string) (string, error) { return value, nil }

func (plainSealer) Open(sealed string) (string, error) {
	if strings.HasPrefix(sealed, sealedPrefix) {
		return "", fmt.Errorf("value is sealed but no token key is configured")
	}
	return sealed, nil
}
