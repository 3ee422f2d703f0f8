package whatsapp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	waLog "go.mau.fi/whatsmeow/util/log"
)

func TestAuthStoreManager_AuthDir(t *testing.T) {
	m := NewAuthStoreManager("/var/lib/wabook/sessions", waLog.Noop)

	assert.Equal(t, filepath.Join("/var/lib/wabook/sessions", "user-1"), m.AuthDir("user-1"))
}

func TestAuthStoreManager_DeleteAuthMaterial(t *testing.T) {
	root := t.TempDir()
	m := NewAuthStoreManager(root, waLog.Noop)

	authDir := m.AuthDir("user-1")
	require.NoError(t, os.MkdirAll(authDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(authDir, "auth.db"), []byte("x"), 0o600))

	require.NoError(t, m.DeleteAuthMaterial("user-1"))

	assert.NoDirExists(t, authDir)
}

func TestAuthStoreManager_DeleteAuthMaterial_MissingDir(t *testing.T) {
	m := NewAuthStoreManager(t.TempDir(), waLog.Noop)

	// Wiping a user that never authenticated is not an error.
	assert.NoError(t, m.DeleteAuthMaterial("user-1"))
}

func TestAuthStoreManager_RejectsUnsafeUserIDs(t *testing.T) {
	root := t.TempDir()
	sibling := filepath.Join(root, "sibling")
	require.NoError(t, os.MkdirAll(sibling, 0o700))

	m := NewAuthStoreManager(filepath.Join(root, "sessions"), waLog.Noop)

	for _, id := range []string{"", ".", "..", "../sibling", "a/b", `a\b`, "/etc"} {
		assert.Error(t, m.DeleteAuthMaterial(id), "id %q must be rejected", id)

		_, _, err := m.OpenDevice(context.Background(), id)
		assert.Error(t, err, "id %q must be rejected", id)
	}

	assert.DirExists(t, sibling, "paths outside the sessions root must stay intact")
}
