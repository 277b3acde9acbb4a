package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/telehostca/chatbot-backend/pkg/keyring"
)

const (
	// KeyringService is the keyring service holding the master key
	KeyringService = "schemamap-security"
	// MasterKeyName is the keyring user under which the master key is stored
	MasterKeyName = "credential-master-key"

	sealedPrefix = "enc:v1:"
)

// SecretStore is the subset of the keyring manager used for master key
// storage. Get must return keyring.ErrNotFound when no entry exists.
type SecretStore interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
}

// TenantSealer encrypts tenant secrets (external database passwords) at rest.
// Every tenant gets its own AES-256 key derived from the master key, and the
// tenant id is bound as additional data so sealed values cannot be moved
// between tenants.
type TenantSealer struct {
	store SecretStore

	mu        sync.Mutex
	masterKey []byte
}

// NewTenantSealer creates a sealer backed by the given keyring store
func NewTenantSealer(store SecretStore) *TenantSealer {
	return &TenantSealer{store: store}
}

// loadMasterKey fetches the master key, generating and storing one only when
// the keyring has no entry. Any other keyring error is returned and the next
// call tries again; the stored key is never replaced.
func (s *TenantSealer) loadMasterKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.masterKey != nil {
		return s.masterKey, nil
	}

	encoded, err := s.store.Get(KeyringService, MasterKeyName)
	switch {
	case err == nil:
		key, decErr := base64.StdEncoding.DecodeString(encoded)
		if decErr != nil || len(key) != 32 {
			return nil, errors.New("stored master key is malformed")
		}
		s.masterKey = key
		return key, nil
	case !errors.Is(err, keyring.ErrNotFound):
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	if err := s.store.Set(KeyringService, MasterKeyName, base64.StdEncoding.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("failed to store master key: %w", err)
	}
	s.masterKey = key
	return key, nil
}

func (s *TenantSealer) tenantAEAD(tenantID string) (cipher.AEAD, error) {
	if tenantID == "" {
		return nil, errors.New("tenant ID is required")
	}
	master, err := s.loadMasterKey()
	if err != nil {
		return nil, err
	}

	mac := hmac.New(sha256.New, master)
	mac.Write([]byte(tenantID))
	block, err := aes.NewCipher(mac.Sum(nil))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// IsSealed reports whether value was produced by Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Seal encrypts plaintext for a tenant. Empty and already sealed values are returned unchanged.
func (s *TenantSealer) Seal(tenantID, plaintext string) (string, error) {
	if plaintext == "" || IsSealed(plaintext) {
		return plaintext, nil
	}

	aead, err := s.tenantAEAD(tenantID)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(tenantID))
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Values without the sealed prefix are treated
// as legacy plaintext and returned as is.
func (s *TenantSealer) Open(tenantID, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}

	aead, err := s.tenantAEAD(tenantID)
	if err != nil {
		return "", err
	}

	if len(data) < aead.NonceSize() {
		return "", errors.New("sealed value too short")
	}
	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(tenantID))
	if err != nil {
		return "", fmt.Errorf("failed to open sealed value for tenant %s: %w", tenantID, err)
	}
	return string(plaintext), nil
}
