package log_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	appLog "madcal/internal/log"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, appLog.LevelDebug, appLog.ParseLevel("debug"))
	assert.Equal(t, appLog.LevelWarn, appLog.ParseLevel(" Warn "))
	assert.Equal(t, appLog.LevelError, appLog.ParseLevel("ERROR"))
	assert.Equal(t, appLog.LevelInfo, appLog.ParseLevel("verbose"))
	assert.Equal(t, appLog.LevelInfo, appLog.ParseLevel(""))
}

func TestLevelFilteringAndKV(t *testing.T) {
	var buf bytes.Buffer
	appLog.SetOutput(&buf)
	appLog.SetLevel(appLog.LevelInfo)
	t.Cleanup(func() { appLog.SetLevel(appLog.LevelInfo) })

	appLog.Debug("hidden", "k", 1)
	assert.Empty(t, buf.String())

	appLog.Error("fetch failed", errors.New("boom"), "source", "events")
	out := buf.String()
	assert.Contains(t, out, "fetch failed")
	assert.Contains(t, out, "err=boom")
	assert.Contains(t, out, "source=events")

	buf.Reset()
	appLog.SetLevel(appLog.LevelDebug)
	appLog.Debug("visible", "k", 1)
	assert.Contains(t, buf.String(), "visible")
}
