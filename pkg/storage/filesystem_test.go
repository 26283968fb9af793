package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutAndPublicURL(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store.WithPublicBaseURL("http://cdn.local/avatars/")

	link, err := store.Put(context.Background(), "user-1/avatar.png", "image/png", strings.NewReader("pngdata"), 7)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.local/avatars/user-1/avatar.png", link)

	data, err := os.ReadFile(filepath.Join(store.BaseDir(), "user-1", "avatar.png"))
	require.NoError(t, err)
	assert.Equal(t, "pngdata", string(data))
	assert.Equal(t, "user-1/avatar.png", KeyFromURL(store, link))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)
	_, err = store.Open("/etc/passwd")
	assert.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("b"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.BaseDir(), "old.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)

	_, err = store.Open("new.csv")
	assert.NoError(t, err)
}
