package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNoopBeforeInitialize(t *testing.T) {
	Reset()
	assert.False(t, IsCategoryEnabled(CategoryAPI))
	assert.NotPanics(t, func() {
		API("request %s", "GET /tasks")
		Get(CategoryPerception).Debug("classified")
	})
}

func TestCategoriesRouteThroughSharedCore(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core), map[string]bool{"store": false})
	t.Cleanup(Reset)

	Perception("intent=%s", "split_task")
	AutomationWarn("no match for %q", "张三")
	Store("should be dropped")

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "perception", entries[0].LoggerName)
	assert.Equal(t, "intent=split_task", entries[0].Message)
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.False(t, IsCategoryEnabled(CategoryStore))
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "zentao.log")
	require.NoError(t, Initialize(Options{Level: "info", Format: "json", File: path}))
	t.Cleanup(Reset)

	Session("logged in as %s", "admin")
	SessionDebug("hidden at info level")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "logged in as admin")
	assert.False(t, strings.Contains(string(data), "hidden at info level"))
}

func TestInitializeRejectsBadInput(t *testing.T) {
	assert.Error(t, Initialize(Options{Level: "loud"}))
	assert.Error(t, Initialize(Options{Format: "xml"}))
}

func TestTimerThreshold(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core), nil)
	t.Cleanup(Reset)

	timer := StartTimer(CategoryAPI, "list tasks")
	time.Sleep(2 * time.Millisecond)
	elapsed := timer.StopWithThreshold(time.Millisecond)

	assert.Greater(t, elapsed, time.Duration(0))
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "slow operation: list tasks")
}
