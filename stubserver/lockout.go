package stubserver

import (
	"sync"
	"time"
)

const (
	// maxPinFailures is the number of consecutive failed PIN attempts before
	// the terminal is locked out.
	maxPinFailures = 3
	// lockoutDuration is how long a locked terminal stays locked.
	lockoutDuration = 15 * time.Minute
)

// pinLockout tracks consecutive failed PIN attempts per device token and
// locks the terminal after maxPinFailures. Keyed by device token rather than
// employee: a failed PIN doesn't identify which employee was intended.
type pinLockout struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
}

type attemptRecord struct {
	failures    int
	lockedUntil time.Time
}

func newPinLockout() *pinLockout {
	return &pinLockout{attempts: make(map[string]*attemptRecord)}
}

// locked reports whether the device is currently locked out.
func (l *pinLockout) locked(deviceToken string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.attempts[deviceToken]
	if !ok {
		return false
	}
	return time.Now().Before(rec.lockedUntil)
}

// recordFailure increments the failure counter and applies the lockout once
// maxPinFailures is reached.
func (l *pinLockout) recordFailure(deviceToken string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.attempts[deviceToken]
	if !ok {
		rec = &attemptRecord{}
		l.attempts[deviceToken] = rec
	}
	rec.failures++
	if rec.failures >= maxPinFailures {
		rec.lockedUntil = time.Now().Add(lockoutDuration)
	}
}

// recordSuccess resets the failure counter.
func (l *pinLockout) recordSuccess(deviceToken string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, deviceToken)
}
