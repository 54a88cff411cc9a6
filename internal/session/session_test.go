package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medconsult-api/internal/model"
)

func TestFileSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s := NewFileSession(path)

	current, err := s.Current()
	require.NoError(t, err)
	assert.Nil(t, current)

	bob := model.User{ID: "u1", Name: "Bob", Email: "bob@medf.test", Role: model.RolePatient, PasswordHash: "secret"}
	require.NoError(t, s.Set(bob))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	current, err = s.Current()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "u1", current.ID)
	assert.Equal(t, model.RolePatient, current.Role)

	require.NoError(t, s.Clear())
	current, err = s.Current()
	require.NoError(t, err)
	assert.Nil(t, current)

	// Clearing twice is fine
	require.NoError(t, s.Clear())
}

func TestFileSession_CorruptFileIsSignedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	current, err := NewFileSession(path).Current()
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestMemorySession(t *testing.T) {
	var s Session = &MemorySession{}

	require.NoError(t, s.Set(model.User{ID: "u1", PasswordHash: "secret"}))
	current, err := s.Current()
	require.NoError(t, err)
	assert.Empty(t, current.PasswordHash)

	require.NoError(t, s.Clear())
	current, err = s.Current()
	require.NoError(t, err)
	assert.Nil(t, current)
}
