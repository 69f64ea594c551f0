package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func keyringStore() *Store {
	keyring.MockInit()
	useFiles := false
	return &Store{Service: KeyringService, UseFiles: &useFiles}
}

func fileStore(t *testing.T) *Store {
	useFiles := true
	return &Store{Service: KeyringService, Dir: t.TempDir(), UseFiles: &useFiles}
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range map[string]*Store{"keyring": keyringStore(), "file": fileStore(t)} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.SaveProxyPassword("alice", "s3cret"))

			got, err := s.LoadProxyPassword("alice")
			require.NoError(t, err)
			assert.Equal(t, "s3cret", got)

			require.NoError(t, s.DeleteProxyPassword("alice"))
			_, err = s.LoadProxyPassword("alice")
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.True(t, errors.Is(s.DeleteProxyPassword("alice"), ErrNotFound))
		})
	}
}

func TestStore_ResolveProxyPassword(t *testing.T) {
	s := keyringStore()

	got, err := s.ResolveProxyPassword("bob", "configured")
	require.NoError(t, err)
	assert.Equal(t, "configured", got)

	got, err = s.ResolveProxyPassword("bob", "")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveProxyPassword("bob", "stored"))
	got, err = s.ResolveProxyPassword("bob", "")
	require.NoError(t, err)
	assert.Equal(t, "stored", got)
}

func TestStore_RejectsEmptyAccount(t *testing.T) {
	assert.Error(t, keyringStore().SaveProxyPassword("", "x"))
}
