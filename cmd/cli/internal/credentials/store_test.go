package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hrms/internal/models"
)

func TestNewStore(t *testing.T) {
	t.Run("creates directory with correct permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		stateDir := filepath.Join(tmpDir, "state")

		store, err := NewStore(stateDir)
		require.NoError(t, err)
		assert.NotNil(t, store)
		assert.Equal(t, stateDir, store.Dir())

		info, err := os.Stat(stateDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	})

	t.Run("uses home directory when baseDir is empty", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		store, err := NewStore("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".hrms"), store.Dir())
	})
}

func TestStore_SaveLoad(t *testing.T) {
	identity := &models.Identity{ID: "1", Name: "Ann", Email: "ann@example.com", Role: models.RoleHR}

	t.Run("empty store loads nothing", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		got, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("round trips the identity", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(identity))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, identity, got)
	})

	t.Run("writes file with 0600 permissions", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, store.Save(identity))

		info, err := os.Stat(filepath.Join(tmpDir, "session.json"))
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

		_, err = os.Stat(filepath.Join(tmpDir, "session.json.tmp"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("save nil clears", func(t *testing.T) {
		store, err := NewStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, store.Save(identity))
		require.NoError(t, store.Save(nil))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestStore_Clear(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(&models.Identity{ID: "1", Role: models.RoleHR}))
	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear(), "clearing twice is not an error")

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "not json", content: "{oops", wantErr: ErrInvalidSnapshot},
		{name: "incomplete identity", content: `{"version":1,"user":{"name":"Ann"}}`, wantErr: ErrInvalidSnapshot},
		{name: "future version", content: `{"version":9,"user":{"id":"1","role":"HR"}}`, wantErr: ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			store, err := NewStore(tmpDir)
			require.NoError(t, err)

			require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(tt.content), 0600))

			_, err = store.Load()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("accepts legacy _id key", func(t *testing.T) {
		tmpDir := t.TempDir()
		store, err := NewStore(tmpDir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "session.json"),
			[]byte(`{"version":1,"user":{"_id":"abc","role":"HR"}}`), 0600))

		got, err := store.Load()
		require.NoError(t, err)
		assert.Equal(t, "abc", got.ID)
	})
}
