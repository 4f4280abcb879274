// Package logsink reports engine observability events as structured logs.
package logsink

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arbdash/revalid/swr"
)

// Sink implements swr.Observer on top of logrus. Successes and dedups
// log at debug level, failures and slow fetches at warn, so a default
// info-level logger stays quiet on the happy path.
type Sink[K comparable] struct {
	log *logrus.Entry
}

// New builds a sink on l; nil falls back to the standard logger.
func New[K comparable](l *logrus.Logger) *Sink[K] {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Sink[K]{log: l.WithField("component", "revalidate")}
}

func (s *Sink[K]) FetchAttempt(key K, _ time.Time) {
	s.log.WithField("key", key).Debug("fetch attempt")
}

func (s *Sink[K]) FetchSuccess(key K, elapsed time.Duration, _ time.Time) {
	s.log.WithFields(logrus.Fields{"key": key, "elapsed": elapsed}).Debug("fetch succeeded")
}

func (s *Sink[K]) FetchError(key K, err error, attempt int, _ time.Time) {
	s.log.WithFields(logrus.Fields{"key": key, "attempt": attempt}).WithError(err).Warn("fetch failed")
}

func (s *Sink[K]) SlowLoading(key K, elapsed time.Duration, _ time.Time) {
	s.log.WithFields(logrus.Fields{"key": key, "elapsed": elapsed}).Warn("fetch still loading")
}

func (s *Sink[K]) Dedup(key K) {
	s.log.WithField("key", key).Debug("request deduplicated")
}

func (s *Sink[K]) ActiveKeys(n int) {
	s.log.WithField("keys", n).Debug("active key count changed")
}

// Compile-time check: ensure Sink implements swr.Observer.
var _ swr.Observer[string] = (*Sink[string])(nil)
