package session

import (
	"github.com/opencounter/posauth/permission"
	"github.com/opencounter/posauth/transport"
)

// Snapshot returns the current read-only view of the session. The returned
// value is a copy; mutating it has no effect on the manager.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:     m.state,
		ExpiresAt: m.expiresAt,
		Loading:   m.loading,
		LastErr:   m.lastErr,
	}
	if m.identity != nil {
		id := *m.identity
		snap.Identity = &id
	}
	if m.location != nil {
		loc := *m.location
		snap.Location = &loc

		role := loc.Role
		snap.Permissions = permission.For(role)
		snap.CanManageEmployees = permission.CanManageEmployees(role)
		snap.CanManageInventory = permission.CanManageInventory(role)
		snap.CanViewReports = permission.CanViewReports(role)
		snap.CanManageExpenses = permission.CanManageExpenses(role)
	} else {
		snap.Permissions = permission.Set{}
	}
	snap.AvailableLocations = append([]transport.Location(nil), m.available...)
	return snap
}

// Subscribe registers fn to be called with a fresh Snapshot after state
// changes. The returned cancel func removes the subscription. Callbacks run
// synchronously on the publishing goroutine and must not call back into the
// manager's mutating operations.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// publish delivers the current snapshot to every subscriber.
func (m *Manager) publish() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
