package twitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPath(t *testing.T) {
	p, err := SearchPath("")
	require.NoError(t, err)
	assert.Equal(t, SearchRecentPath, p)

	p, err = SearchPath("all")
	require.NoError(t, err)
	assert.Equal(t, SearchAllPath, p)

	_, err = SearchPath("30day")
	assert.Error(t, err)
}

func TestClampSearchResults(t *testing.T) {
	assert.Equal(t, 100, ClampSearchResults("recent", 0))
	assert.Equal(t, 10, ClampSearchResults("recent", 3))
	assert.Equal(t, 42, ClampSearchResults("recent", 42))
	assert.Equal(t, 100, ClampSearchResults("recent", 250))
	assert.Equal(t, 250, ClampSearchResults("all", 250))
	assert.Equal(t, 500, ClampSearchResults("all", 900))
}

func TestTimelineQuery(t *testing.T) {
	q := timelineQuery(TimelineParams{})
	assert.Equal(t, "200", q["count"])
	assert.Equal(t, "false", q["exclude_replies"])
	assert.NotContains(t, q, "max_id")

	q = timelineQuery(TimelineParams{Count: 50, MaxID: "10", SinceID: "2", ExcludeReplies: true})
	assert.Equal(t, "50", q["count"])
	assert.Equal(t, "10", q["max_id"])
	assert.Equal(t, "2", q["since_id"])
}

func TestStatusForm(t *testing.T) {
	form := statusForm(StatusUpdate{Status: "hello"})
	assert.Equal(t, map[string]string{"status": "hello"}, form)
}

func TestPrecedingID(t *testing.T) {
	id, err := PrecedingID("1764203884016132096")
	require.NoError(t, err)
	assert.Equal(t, "1764203884016132095", id)

	_, err = PrecedingID("abc")
	assert.Error(t, err)
	_, err = PrecedingID("0")
	assert.Error(t, err)
}

func TestHandles(t *testing.T) {
	assert.Equal(t, "jack", NormalizeHandle(" @jack/ "))
	assert.True(t, IsValidHandle("@jack_1"))
	assert.False(t, IsValidHandle(""))
	assert.False(t, IsValidHandle("has space"))
	assert.False(t, IsValidHandle("averyveryverylonghandle"))

	assert.Equal(t, "https://twitter.com/jack/status/20", TweetURL("@jack", "20"))
	assert.Equal(t, "https://twitter.com/i/web/status/20", TweetURL("", "20"))
	assert.Empty(t, TweetURL("jack", ""))
}
