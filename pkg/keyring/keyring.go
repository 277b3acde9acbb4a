package keyring

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
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// ErrNotFound is returned when no entry exists for a service/user pair.
var ErrNotFound = errors.New("keyring entry not found")

// Backend selects where secrets are kept.
const (
	BackendAuto   = "auto"
	BackendSystem = "system"
	BackendFile   = "file"
)

// FileKeyring implements a file-based keyring for headless servers
type FileKeyring struct {
	mu          sync.Mutex
	keyringPath string
	masterKey   []byte
}

// keyringEntry is one encrypted record in the keyring file
type keyringEntry struct {
	Service string `json:"service"`
	User    string `json:"user"`
	Data    string `json:"data"`
}

// Manager provides a unified interface over the system keyring and the file fallback
type Manager struct {
	fileKeyring *FileKeyring
	useFile     bool
}

// NewManager creates a keyring manager. With BackendAuto the system keyring is
// probed first and the file keyring is used when it is unavailable.
func NewManager(keyringPath, masterPassword, backend string) *Manager {
	switch backend {
	case BackendSystem:
		return &Manager{useFile: false}
	case BackendFile:
		return &Manager{fileKeyring: NewFileKeyring(keyringPath, masterPassword), useFile: true}
	}

	if systemKeyringAvailable(5 * time.Second) {
		return &Manager{useFile: false}
	}
	return &Manager{fileKeyring: NewFileKeyring(keyringPath, masterPassword), useFile: true}
}

// systemKeyringAvailable writes and deletes a probe entry. Some desktop-less
// hosts block on the D-Bus call, so the probe is bounded by timeout.
func systemKeyringAvailable(timeout time.Duration) bool {
	const probeService, probeUser = "schemamap-probe", "probe"

	done := make(chan error, 1)
	go func() {
		err := keyring.Set(probeService, probeUser, "ok")
		if err == nil {
			_ = keyring.Delete(probeService, probeUser)
		}
		done <- err
	}()

	select {
	case err := <-done:
		return err == nil
	case <-time.After(timeout):
		return false
	}
}

// UsesFile reports whether the file fallback is active.
func (m *Manager) UsesFile() bool {
	return m.useFile
}

// Set stores a value in the keyring (system or file)
func (m *Manager) Set(service, user, secret string) error {
	if !m.useFile {
		return keyring.Set(service, user, secret)
	}
	return m.fileKeyring.Set(service, user, secret)
}

// Get retrieves a value from the keyring (system or file)
func (m *Manager) Get(service, user string) (string, error) {
	if !m.useFile {
		v, err := keyring.Get(service, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return v, err
	}
	return m.fileKeyring.Get(service, user)
}

// Delete removes a value from the keyring (system or file)
func (m *Manager) Delete(service, user string) error {
	if !m.useFile {
		err := keyring.Delete(service, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return m.fileKeyring.Delete(service, user)
}

// NewFileKeyring creates a new file-based keyring
func NewFileKeyring(keyringPath, masterPassword string) *FileKeyring {
	hash := sha256.Sum256([]byte(masterPassword))

	return &FileKeyring{
		keyringPath: keyringPath,
		masterKey:   hash[:],
	}
}

func (fk *FileKeyring) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func (fk *FileKeyring) encrypt(plaintext string) (string, error) {
	gcm, err := fk.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (fk *FileKeyring) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	gcm, err := fk.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt keyring entry: %w", err)
	}
	return string(plaintext), nil
}

func (fk *FileKeyring) load() (map[string]keyringEntry, error) {
	entries := make(map[string]keyringEntry)
	data, err := os.ReadFile(fk.keyringPath)
	if os.IsNotExist(err) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring file: %w", err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keyring file: %w", err)
	}
	return entries, nil
}

func (fk *FileKeyring) save(entries map[string]keyringEntry) error {
	if err := os.MkdirAll(filepath.Dir(fk.keyringPath), 0o700); err != nil {
		return fmt.Errorf("failed to create keyring directory: %w", err)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(fk.keyringPath, data, 0o600)
}

// Set stores an entry in the file keyring
func (fk *FileKeyring) Set(service, user, secret string) error {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return err
	}

	encrypted, err := fk.encrypt(secret)
	if err != nil {
		return err
	}

	entries[service+":"+user] = keyringEntry{Service: service, User: user, Data: encrypted}
	return fk.save(entries)
}

// Get retrieves an entry from the file keyring
func (fk *FileKeyring) Get(service, user string) (string, error) {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return "", err
	}

	entry, ok := entries[service+":"+user]
	if !ok {
		return "", ErrNotFound
	}
	return fk.decrypt(entry.Data)
}

// Delete removes an entry from the file keyring
func (fk *FileKeyring) Delete(service, user string) error {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return err
	}

	key := service + ":" + user
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return fk.save(entries)
}

// DefaultPath returns the default keyring file path
func DefaultPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "schemamap-keyring.json")
	}
	return filepath.Join(homeDir, ".local", "share", "schemamap", "keyring.json")
}
