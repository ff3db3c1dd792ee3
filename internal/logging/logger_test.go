package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLeveledHelpers(t *testing.T) {
	previous := L()
	defer SetLogger(previous)

	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))

	Debugf("hidden %d", 1)
	Infof("catalog fetched: %d tariffs", 3)
	Warningf("fetch retry %d", 2)
	Errorf("fetch failed: %s", "boom")

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 3) {
		assert.Equal(t, "catalog fetched: 3 tariffs", entries[0].Message)
		assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
		assert.Equal(t, "fetch failed: boom", entries[2].Message)
	}
}

func TestInitializeFallsBackOnBadLevel(t *testing.T) {
	previous := L()
	defer SetLogger(previous)

	err := Initialize(Config{Level: "loud", Format: "json", Output: "stderr"})
	assert.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level.Level())

	SetLogLevel("debug")
	assert.Equal(t, zapcore.DebugLevel, level.Level())
	SetLogLevel("warn")
}
