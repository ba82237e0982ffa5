package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"tweetutil/pkg/twitter"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Out
	Out = &buf
	t.Cleanup(func() { Out = prev })
	return &buf
}

func TestSearchProgress(t *testing.T) {
	buf := captureOutput(t)

	p := NewSearchProgress("golang", 10, false)
	p.Page(1, 20, 5, 5, 0)
	assert.Contains(t, buf.String(), "5/10")
	assert.Contains(t, buf.String(), "page 1")

	p.Page(2, 20, 0, 5, 1)
	assert.Contains(t, buf.String(), "1 empty")

	buf.Reset()
	p.Complete("stagnated", "out.json")
	out := buf.String()
	assert.Contains(t, out, `Collected 5 of 10 posts for "golang"`)
	assert.Contains(t, out, "stopped: stagnated")
	assert.Contains(t, out, "saved to out.json")
}

func TestSearchProgressDebug(t *testing.T) {
	buf := captureOutput(t)

	NewSearchProgress("golang", 10, true).Page(3, 100, 7, 12, 0)
	assert.Contains(t, buf.String(), "page 3 • 100 received • 7 kept • 12/10")
}

func TestPrintTweets(t *testing.T) {
	buf := captureOutput(t)

	PrintTweets([]twitter.Tweet{
		{ID: "1", Text: "hello\n  world", Author: &twitter.User{ScreenName: "ann"}, CreatedAt: time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)},
		{ID: "2", Text: strings.Repeat("x", 150)},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "@ann")
	assert.Contains(t, lines[0], "hello world")
	assert.Contains(t, lines[1], "unknown")
	assert.Contains(t, lines[1], "…")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", formatDuration(42*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ünic…", truncate("ünicode", 5))
}
