package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/salehmehdi/pixel-manager/internal/domain"
)

const ciphertextPrefix = "enc:v1:"

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Encryptor encrypts and decrypts the secret fields of a flat credentials record
type Encryptor interface {
	EncryptFields(fields map[string]string) (map[string]string, error)
	DecryptFields(fields map[string]string) map[string]string
}

// AESEncryptor seals secret credential fields with AES-256-GCM
type AESEncryptor struct {
	aead   cipher.AEAD
	fields []string
	log    *zap.Logger
}

// NewAESEncryptor creates an encryptor from a base64 encoded 32 byte key
func NewAESEncryptor(encodedKey string, log *zap.Logger) (*AESEncryptor, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, fmt.Errorf("failed to decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESEncryptor{
		aead:   aead,
		fields: domain.SecretFields,
		log:    log,
	}, nil
}

// EncryptFields returns a copy of the record with every non-empty secret field sealed.
// Values that already carry the ciphertext prefix are left as they are.
func (e *AESEncryptor) EncryptFields(fields map[string]string) (map[string]string, error) {
	out := copyFields(fields)
	for _, name := range e.fields {
		value := out[name]
		if value == "" || strings.HasPrefix(value, ciphertextPrefix) {
			continue
		}
		sealed, err := e.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", name, err)
		}
		out[name] = sealed
	}
	return out, nil
}

// DecryptFields returns a copy of the record with secret fields opened.
// A field that fails to decrypt keeps its stored value.
func (e *AESEncryptor) DecryptFields(fields map[string]string) map[string]string {
	out := copyFields(fields)
	for _, name := range e.fields {
		value := out[name]
		if value == "" {
			continue
		}
		plain, err := e.Decrypt(value)
		if err != nil {
			e.log.Warn("Failed to decrypt credential field, using stored value",
				zap.String("field", name),
				zap.Error(err))
			continue
		}
		out[name] = plain
	}
	return out
}

// Encrypt seals a single value
func (e *AESEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return ciphertextPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt
func (e *AESEncryptor) Decrypt(value string) (string, error) {
	if !strings.HasPrefix(value, ciphertextPrefix) {
		return "", ErrMalformedCiphertext
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, ciphertextPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrMalformedCiphertext
	}
	plain, err := e.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to open ciphertext: %w", err)
	}
	return string(plain), nil
}

// NoopEncryptor stores credentials as they are
type NoopEncryptor struct{}

func (NoopEncryptor) EncryptFields(fields map[string]string) (map[string]string, error) {
	return copyFields(fields), nil
}

func (NoopEncryptor) DecryptFields(fields map[string]string) map[string]string {
	return copyFields(fields)
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
