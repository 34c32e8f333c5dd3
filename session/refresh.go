package session

import (
	"context"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/opencounter/posauth/transport"
)

// refreshLoop is the handle for one run of the periodic expiry check. A new
// handle is created per authenticated session so a stale timer from a
// previous session can never touch a newer one.
type refreshLoop struct {
	stopOnce sync.Once
	stopCh   chan struct{}
}

func (l *refreshLoop) stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// startRefreshLoopLocked starts the periodic check. Caller holds m.mu and
// has just entered StateAuthenticated.
func (m *Manager) startRefreshLoopLocked() {
	m.stopRefreshLoopLocked()
	loop := &refreshLoop{stopCh: make(chan struct{})}
	m.loop = loop
	go m.runRefreshLoop(loop)
}

// stopRefreshLoopLocked cancels the periodic check synchronously. Caller
// holds m.mu. Called on every path that leaves StateAuthenticated.
func (m *Manager) stopRefreshLoopLocked() {
	if m.loop != nil {
		m.loop.stop()
		m.loop = nil
	}
}

func (m *Manager) runRefreshLoop(loop *refreshLoop) {
	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-loop.stopCh:
			return
		case <-ticker.C:
			m.checkExpiry(context.Background())
		}
	}
}

// checkExpiry evaluates the refresh-vs-expire decision against the freshest
// known expiry at the moment it runs: past expiry clears the session, expiry
// inside the threshold window triggers a refresh, otherwise nothing to do.
func (m *Manager) checkExpiry(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	now := m.now()
	if !m.expiresAt.After(now) {
		m.clearSessionLocked("session expired")
		m.mu.Unlock()
		m.publish()
		return
	}
	withinThreshold := m.expiresAt.Sub(now) <= m.refreshThreshold
	m.mu.Unlock()

	if withinThreshold {
		m.refreshSession(ctx)
	}
}

// refreshSession renews the session token. Failure is triaged: a revoked or
// expired token clears the session (back to the PIN screen), while any other
// failure leaves the session untouched so the employee is not logged out
// over a transient network blip — the next periodic check retries.
func (m *Manager) refreshSession(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	tok, err := openEnclave(m.token)
	if err != nil {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	res, err := m.remote.RefreshSession(ctx, tok)

	m.mu.Lock()
	if m.gen != gen || m.state != StateAuthenticated {
		// The session this refresh was issued against no longer exists.
		m.mu.Unlock()
		return
	}
	if err != nil {
		if transport.IsAuthRevoked(err) {
			m.logger.Info("session revoked by server", "error", err)
			m.clearSessionLocked("refresh rejected")
		} else {
			m.lastErr = err
			m.logger.Warn("session refresh failed, will retry", "error", err)
		}
		m.mu.Unlock()
		m.publish()
		return
	}

	// Token and expiry swap in together.
	m.token = memguard.NewEnclave([]byte(res.SessionToken))
	m.expiresAt = res.ExpiresAt
	m.lastErr = nil
	m.mu.Unlock()

	m.publish()
	m.logger.Debug("session refreshed", "expires_at", res.ExpiresAt)
}
