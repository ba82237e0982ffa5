package checkpoint

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetutil/pkg/logger"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManagerIn(t.TempDir(), Key("golang", "Berlin", "out.json"))
	require.NoError(t, err)
	m.SetLogger(logger.NewTestLogger())
	return m
}

func TestKey(t *testing.T) {
	a := Key("golang", "", "out.json")
	assert.Len(t, a, 16)
	assert.Equal(t, a, Key("golang", "", "out.json"))
	assert.NotEqual(t, a, Key("golang", "Berlin", "out.json"))
	assert.NotEqual(t, a, Key("golang", "", "other.json"))
}

func TestCreateLoadUpdate(t *testing.T) {
	m := newTestManager(t)

	cp, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, cp)
	assert.False(t, m.Exists())

	cp, err = m.Create("golang", "Berlin", "out.json")
	require.NoError(t, err)
	assert.True(t, m.Exists())
	assert.Equal(t, Version, cp.Version)

	require.NoError(t, m.UpdateProgress(cp, "tok3", 3, 1, 42))

	loaded, err := m.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "golang", loaded.Query)
	assert.Equal(t, "Berlin", loaded.Place)
	assert.Equal(t, "tok3", loaded.NextToken)
	assert.Equal(t, 3, loaded.Pages)
	assert.Equal(t, 1, loaded.EmptyStreak)
	assert.Equal(t, 42, loaded.Collected)
	assert.False(t, loaded.UpdatedAt.Before(loaded.CreatedAt))

	require.NoError(t, m.Delete())
	assert.False(t, m.Exists())
	require.NoError(t, m.Delete(), "deleting a missing checkpoint is fine")
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{"query":"x","version":99}`), 0644))

	_, err := m.Load()
	assert.Error(t, err)
}

func TestLoadCorrupt(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, os.WriteFile(m.Path(), []byte(`{`), 0644))

	_, err := m.Load()
	assert.Error(t, err)
}

func TestNewManagerUsesDataDirectory(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_DATA_HOME is only honoured on linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	m, err := NewManager("abc")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tweetutil", "checkpoints", "abc.checkpoint.json"), m.Path())
}
