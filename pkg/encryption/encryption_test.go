package encryption

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telehostca/chatbot-backend/pkg/keyring"
)

func newSealer(t *testing.T) (*TenantSealer, *keyring.Manager) {
	t.Helper()
	km := keyring.NewManager(filepath.Join(t.TempDir(), "keyring.json"), "master", keyring.BackendFile)
	return NewTenantSealer(km), km
}

func TestSealOpenRoundTrip(t *testing.T) {
	s, _ := newSealer(t)

	sealed, err := s.Seal("tenant-a", "p@ss'word")
	require.NoError(t, err)
	assert.True(t, IsSealed(sealed))
	assert.NotContains(t, sealed, "p@ss")

	plain, err := s.Open("tenant-a", sealed)
	require.NoError(t, err)
	assert.Equal(t, "p@ss'word", plain)
}

func TestSealIsBoundToTenant(t *testing.T) {
	s, _ := newSealer(t)

	sealed, err := s.Seal("tenant-a", "secret")
	require.NoError(t, err)

	_, err = s.Open("tenant-b", sealed)
	assert.Error(t, err)
}

func TestSealPassThrough(t *testing.T) {
	s, _ := newSealer(t)

	tests := []struct {
		name  string
		value string
	}{
		{"empty", ""},
		{"legacy plaintext", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Open("tenant-a", tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}

	empty, err := s.Seal("tenant-a", "")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMasterKeyPersistsAcrossSealers(t *testing.T) {
	s1, km := newSealer(t)
	sealed, err := s1.Seal("tenant-a", "secret")
	require.NoError(t, err)

	s2 := NewTenantSealer(km)
	plain, err := s2.Open("tenant-a", sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}

func TestSealRequiresTenant(t *testing.T) {
	s, _ := newSealer(t)
	_, err := s.Seal("", "secret")
	assert.Error(t, err)
}

func TestWrongKeyringPasswordKeepsMasterKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")

	owner := NewTenantSealer(keyring.NewManager(path, "password-a", keyring.BackendFile))
	sealed, err := owner.Seal("tenant-a", "secret")
	require.NoError(t, err)

	intruder := NewTenantSealer(keyring.NewManager(path, "password-b", keyring.BackendFile))
	_, err = intruder.Seal("tenant-a", "other")
	assert.Error(t, err)
	_, err = intruder.Open("tenant-a", sealed)
	assert.Error(t, err)

	reopened := NewTenantSealer(keyring.NewManager(path, "password-a", keyring.BackendFile))
	plain, err := reopened.Open("tenant-a", sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}

type flakyStore struct {
	getErr error
	values map[string]string
	sets   int
}

func (f *flakyStore) Get(service, user string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[service+":"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (f *flakyStore) Set(service, user, secret string) error {
	f.sets++
	f.values[service+":"+user] = secret
	return nil
}

func TestKeyringErrorIsNotCached(t *testing.T) {
	store := &flakyStore{getErr: errors.New("dbus: timeout"), values: map[string]string{}}
	s := NewTenantSealer(store)

	_, err := s.Seal("tenant-a", "secret")
	require.Error(t, err)
	assert.Zero(t, store.sets)

	store.getErr = nil
	sealed, err := s.Seal("tenant-a", "secret")
	require.NoError(t, err)
	assert.Equal(t, 1, store.sets)

	plain, err := s.Open("tenant-a", sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret", plain)
}
