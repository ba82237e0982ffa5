package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tweetutil/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level json", &config.LoggingConfig{Level: "debug", Format: "json"}, false},
		{"invalid level", &config.LoggingConfig{Level: "invalid"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "tweetutil.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
			if tt.cfg.File != "" {
				_, err := os.Stat(tt.cfg.File)
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestZerologLoggerFields(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	l := &zerologLogger{logger: &zl, fields: map[string]interface{}{}}

	child := l.WithField("query", "golang").WithFields(map[string]interface{}{
		"page":  2,
		"delay": 2 * time.Second,
	})
	child.WithError(errors.New("boom")).Warn("page failed")

	out := buf.String()
	assert.Contains(t, out, `"query":"golang"`)
	assert.Contains(t, out, `"page":2`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"message":"page failed"`)

	// Parent is unchanged by child fields
	buf.Reset()
	l.Info("plain")
	assert.False(t, strings.Contains(buf.String(), "golang"))
}

func TestSecretFieldsAreRedacted(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	var buf bytes.Buffer
	zl := zerolog.New(&buf)
	l := &zerologLogger{logger: &zl, fields: map[string]interface{}{}}

	l.InfoWithFields("client ready", map[string]interface{}{
		"bearer_token": "AAAAAAAAAAAAAAAAAAAAAtoken1234",
		"Consumer_Key": "short",
		"account":      "work",
	})

	out := buf.String()
	assert.Contains(t, out, `"bearer_token":"***1234"`)
	assert.Contains(t, out, `"Consumer_Key":"***"`)
	assert.Contains(t, out, `"account":"work"`)
	assert.NotContains(t, out, "AAAAAAAA")
}

func TestTestLoggerCapturesChildren(t *testing.T) {
	tl := NewTestLogger()

	tl.WithField("component", "search").WithError(errors.New("timeout")).Warn("retrying")
	tl.InfoWithFields("done", map[string]interface{}{"count": 3})

	messages := tl.GetMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "WARN", messages[0].Level)
	assert.Equal(t, "search", messages[0].Fields["component"])
	assert.EqualError(t, messages[0].Error, "timeout")
	assert.Equal(t, 3, messages[1].Fields["count"])

	assert.True(t, tl.HasMessage("done"))
	assert.False(t, tl.HasError())
	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestLogSearchProgress(t *testing.T) {
	tl := NewTestLogger()
	LogSearchProgress(tl, "golang", 2, 50, 200)

	messages := tl.GetMessagesByLevel("INFO")
	require.Len(t, messages, 1)
	assert.Equal(t, "25.0%", messages[0].Fields["percentage"])
	assert.Equal(t, 2, messages[0].Fields["page"])
}
