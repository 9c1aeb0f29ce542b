package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "memory.json"))
	require.NoError(t, err)
	require.True(t, store.Facts().Empty())
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("  ")
	require.Error(t, err)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte("{name:"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "decode memory")
}

func TestSetNamePersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "memory.json")

	store, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, store.SetName("Alex"))
	require.Equal(t, Facts{Name: "Alex"}, store.Facts())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"Alex"}`, string(contents))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, store.Facts(), reloaded.Facts())

	stat, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), stat.Mode().Perm())
}

func TestSetNoteKeepsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Alex"}`), 0o600))

	store, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, store.SetNote("the spare key is under the mat"))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Facts{Name: "Alex", Note: "the spare key is under the mat"}, reloaded.Facts())
}

func TestSetBlankValueIsRejected(t *testing.T) {
	store, err := Load(filepath.Join(t.TempDir(), "memory.json"))
	require.NoError(t, err)
	require.ErrorIs(t, store.SetName("   "), ErrNothingToRemember)
	require.ErrorIs(t, store.SetNote(""), ErrNothingToRemember)
}

func TestSaveFailureRollsBack(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"Alex"}`), 0o600))

	store, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	err = store.SetName("Sam")
	require.Error(t, err)
	require.Equal(t, Facts{Name: "Alex"}, store.Facts())
}

func TestSaveFailureWhenParentIsFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	store, err := Load(filepath.Join(blocker, "memory.json"))
	require.NoError(t, err)

	// The parent directory turns into a file after load.
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	require.Error(t, store.SetNote("buy milk"))
	require.True(t, store.Facts().Empty())
}
