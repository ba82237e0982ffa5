package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetutil/pkg/twitter"
)

func TestManagerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "results.json")
	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Path())

	tweets, err := m.Load()
	require.NoError(t, err)
	assert.Nil(t, tweets)

	want := []twitter.Tweet{
		{ID: "2", Text: "second", Hashtags: []string{"go"}},
		{ID: "1", Text: "first", Author: &twitter.User{ID: "u", ScreenName: "ann"}},
	}
	require.NoError(t, m.Save(want))

	got, err := m.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loaded tweets mismatch (-want +got):\n%s", diff)
	}

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestManagerSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, m.Save(nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestNewManagerEmptyPath(t *testing.T) {
	_, err := NewManager("")
	assert.Error(t, err)
}

func TestReadJSONCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	var v map[string]string
	found, err := ReadJSON(path, &v)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestWriteJSONIndented(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.json")
	require.NoError(t, WriteJSON(path, map[string]int{"pages": 3}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"pages\": 3\n}\n", string(data))
}
