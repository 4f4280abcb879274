package logsink

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) (*Sink[string], *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New[string](logger), hook
}

func TestFetchErrorLogsWarning(t *testing.T) {
	s, hook := newTestSink(t)

	s.FetchError("prices", errors.New("connection refused"), 3, time.Now())

	require.Len(t, hook.Entries, 1)
	e := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, e.Level)
	assert.Equal(t, "fetch failed", e.Message)
	assert.Equal(t, "prices", e.Data["key"])
	assert.Equal(t, 3, e.Data["attempt"])
	assert.Equal(t, "revalidate", e.Data["component"])
	require.Error(t, e.Data[logrus.ErrorKey].(error))
}

func TestHappyPathLogsAtDebug(t *testing.T) {
	s, hook := newTestSink(t)

	s.FetchAttempt("status", time.Now())
	s.FetchSuccess("status", 40*time.Millisecond, time.Now())
	s.Dedup("status")
	s.ActiveKeys(2)

	require.Len(t, hook.Entries, 4)
	for _, e := range hook.AllEntries() {
		assert.Equal(t, logrus.DebugLevel, e.Level)
	}
}

func TestSlowLoadingLogsWarning(t *testing.T) {
	s, hook := newTestSink(t)

	s.SlowLoading("orders", 3*time.Second, time.Now())

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, 3*time.Second, hook.LastEntry().Data["elapsed"])
}

func TestNilLoggerFallsBack(t *testing.T) {
	assert.NotPanics(t, func() {
		s := New[string](nil)
		s.ActiveKeys(0)
	})
}
