package session

import (
	"log/slog"
	"time"
)

const (
	defaultRefreshInterval  = time.Minute
	defaultRefreshThreshold = 5 * time.Minute
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger. If not set, a JSON logger writing
// to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithRefreshInterval sets how often the periodic expiry check runs while
// authenticated.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshInterval = d
		}
	}
}

// WithRefreshThreshold sets the window before expiry during which the
// manager proactively renews the session token.
func WithRefreshThreshold(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshThreshold = d
		}
	}
}

// WithNow overrides the clock. Test seam.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
