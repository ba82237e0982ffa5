package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetutil/pkg/twitter"
)

func openTestArchive(t *testing.T) (*Archive, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db", "archive.db")
	a, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
	})
	return a, path
}

func TestOpenAndMigrate(t *testing.T) {
	a, path := openTestArchive(t)

	_, err := os.Stat(path)
	require.NoError(t, err)

	var version string
	require.NoError(t, a.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version))
	assert.Equal(t, "1", version)

	// Reopening an existing archive keeps the version row
	require.NoError(t, a.Close())
	b, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	a, path := openTestArchive(t)
	_, err := a.db.Exec("UPDATE metadata SET value = '9' WHERE key = 'schema_version'")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestRunLifecycle(t *testing.T) {
	a, _ := openTestArchive(t)
	ctx := context.Background()

	runID, err := a.StartRun(ctx, KindSearch, "bagels")
	require.NoError(t, err)
	_, err = uuid.Parse(runID)
	require.NoError(t, err)

	first := []twitter.Tweet{
		{ID: "2", Text: "two", Author: &twitter.User{ID: "u1", ScreenName: "ann"}, CreatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "1", Text: "one", Place: &twitter.Place{ID: "p", Name: "Paris"}},
	}
	added, err := a.SavePosts(ctx, runID, first)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Same ids again plus one new: only the new one counts
	added, err = a.SavePosts(ctx, runID, []twitter.Tweet{{ID: "1", Text: "one edited"}, {ID: "3", Text: "three"}, {Text: "no id"}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	require.NoError(t, a.FinishRun(ctx, runID, 3, "target_reached"))

	n, err := a.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	runs, err := a.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, KindSearch, runs[0].Kind)
	assert.Equal(t, "bagels", runs[0].Query)
	assert.Equal(t, 3, runs[0].PostCount)
	assert.Equal(t, "target_reached", runs[0].StopReason)
	assert.False(t, runs[0].FinishedAt.IsZero())

	posts, err := a.RunPosts(ctx, runID)
	require.NoError(t, err)
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	if diff := cmp.Diff([]string{"2", "1", "3"}, ids); diff != "" {
		t.Errorf("run post order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "one edited", posts[1].Text)
	assert.Equal(t, "ann", posts[0].Author.ScreenName)
}

func TestRunsNewestFirst(t *testing.T) {
	a, _ := openTestArchive(t)
	ctx := context.Background()

	older, err := a.StartRun(ctx, KindTimeline, "")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := a.StartRun(ctx, KindSearch, "go")
	require.NoError(t, err)

	runs, err := a.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer, runs[0].ID)
	assert.Equal(t, older, runs[1].ID)
	assert.True(t, runs[1].FinishedAt.IsZero())

	limited, err := a.Runs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinishUnknownRun(t *testing.T) {
	a, _ := openTestArchive(t)
	assert.Error(t, a.FinishRun(context.Background(), "missing", 0, "exhausted"))
}

func TestSavePostsUnknownRun(t *testing.T) {
	a, _ := openTestArchive(t)
	_, err := a.SavePosts(context.Background(), "missing", []twitter.Tweet{{ID: "1", Text: "x"}})
	assert.Error(t, err, "foreign key on run_posts.run_id")
}
