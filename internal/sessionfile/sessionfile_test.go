package sessionfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	got, err := Load(t.TempDir(), "abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSave_RoundTripsAndCreatesDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "nested")
	want := map[int64]int64{2: 101, 7: 140}

	require.NoError(t, Save(dir, "abc", want))

	got, err := Load(dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := Load(dir, "other")
	require.NoError(t, err)
	assert.Empty(t, other, "sessions must not share state")
}

func TestSave_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, Save("~/.local/state/duelist", "s1", map[int64]int64{3: 9}))
	_, err := os.Stat(filepath.Join(home, ".local", "state", "duelist", "session-s1.toml"))
	require.NoError(t, err)
}

func TestLoad_CorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	path, err := Path(dir, "abc")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("not valid toml {{{\n"), 0o600))

	got, err := Load(dir, "abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_SkipsInvalidRows(t *testing.T) {
	dir := t.TempDir()
	path, err := Path(dir, "abc")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(`
[[challenge]]
opponent_id = 0
battle_id = 5

[[challenge]]
opponent_id = 4
battle_id = 12
`), 0o600))

	got, err := Load(dir, "abc")
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{4: 12}, got)
}

func TestRemove_DeletesAndToleratesMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Save(dir, "abc", map[int64]int64{1: 2}))
	require.NoError(t, Remove(dir, "abc"))
	require.NoError(t, Remove(dir, "abc"))

	got, err := Load(dir, "abc")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPath_RejectsBadSessionIDs(t *testing.T) {
	for _, id := range []string{"", "  ", "../x", `a\b`} {
		_, err := Path(t.TempDir(), id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestPrune_RemovesStaleFilesOnly(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"old", "fresh", "current"} {
		require.NoError(t, Save(dir, id, map[int64]int64{1: 2}))
	}
	unrelated := filepath.Join(dir, "duelist.log")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0o600))

	past := time.Now().Add(-30 * 24 * time.Hour)
	for _, id := range []string{"old", "current"} {
		path, err := Path(dir, id)
		require.NoError(t, err)
		require.NoError(t, os.Chtimes(path, past, past))
	}
	require.NoError(t, os.Chtimes(unrelated, past, past))

	removed, err := Prune(dir, "current", 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	old, _ := Path(dir, "old")
	assert.NoFileExists(t, old)
	for _, id := range []string{"fresh", "current"} {
		path, _ := Path(dir, id)
		assert.FileExists(t, path)
	}
	assert.FileExists(t, unrelated)
}

func TestPrune_MissingDirIsNoop(t *testing.T) {
	removed, err := Prune(filepath.Join(t.TempDir(), "absent"), "", time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
