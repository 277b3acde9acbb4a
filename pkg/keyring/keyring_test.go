package keyring

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileKeyringRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyring.json")
	fk := NewFileKeyring(path, "master")

	require.NoError(t, fk.Set("schemamap", "tenant-a", "s3cret"))
	require.NoError(t, fk.Set("schemamap", "tenant-b", "other"))

	got, err := fk.Get("schemamap", "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")

	require.NoError(t, fk.Delete("schemamap", "tenant-a"))
	_, err = fk.Get("schemamap", "tenant-a")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = fk.Get("schemamap", "tenant-b")
	require.NoError(t, err)
	assert.Equal(t, "other", got)
}

func TestFileKeyringWrongMasterPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.json")
	require.NoError(t, NewFileKeyring(path, "right").Set("svc", "user", "value"))

	_, err := NewFileKeyring(path, "wrong").Get("svc", "user")
	assert.Error(t, err)
}

func TestManagerFileBackend(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "keyring.json"), "master", BackendFile)
	require.True(t, m.UsesFile())

	_, err := m.Get("svc", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Set("svc", "user", "value"))
	v, err := m.Get("svc", "user")
	require.NoError(t, err)
	assert.Equal(t, "value", v)

	assert.NoError(t, m.Delete("svc", "missing"))
}
