// Package session implements the terminal's authentication core: the state
// machine that binds a device to a business, authenticates employees by PIN,
// keeps the session token fresh, and publishes the identity, location and
// permission view the rest of the application renders from.
package session

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/opencounter/posauth/credstore"
	"github.com/opencounter/posauth/transport"
)

// Manager owns all session state. All transitions are serialized behind one
// mutex; network calls run outside it and their results are committed only
// if the session generation they were issued against is still current, so a
// stale response can never resurrect a session that ended while it was in
// flight.
//
// One Manager instance is created by the application root and shared by
// reference with every consumer. All methods are safe for concurrent use.
type Manager struct {
	store  credstore.Store
	remote transport.RemoteAuth
	logger *slog.Logger

	refreshInterval  time.Duration
	refreshThreshold time.Duration
	now              func() time.Time

	mu          sync.Mutex
	state       State
	identity    *transport.Employee
	location    *transport.Location
	available   []transport.Location
	token       *memguard.Enclave
	expiresAt   time.Time
	deviceToken *memguard.Enclave
	gen         uint64
	lastErr     error
	loading     bool
	closed      bool

	loop *refreshLoop

	subMu   sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewManager creates a Manager in StateLoading. Call Start to probe the
// credential store and reach the first real state.
func NewManager(store credstore.Store, remote transport.RemoteAuth, opts ...Option) *Manager {
	m := &Manager{
		store:            store,
		remote:           remote,
		refreshInterval:  defaultRefreshInterval,
		refreshThreshold: defaultRefreshThreshold,
		now:              time.Now,
		state:            StateLoading,
		subs:             make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return m
}

// Start performs the cold-start credential probe: if a device token is
// persisted the terminal goes straight to the PIN screen, otherwise it needs
// activation. Safe to call once after NewManager.
func (m *Manager) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tok, ok, err := m.store.Get(credstore.KeyDeviceToken)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	switch {
	case err != nil:
		// Unreadable store: treat the device as unbound rather than wedge
		// the terminal in Loading. Activation will rewrite the store.
		m.state = StateDeviceNotActivated
		m.lastErr = err
		m.logger.Error("credential store unreadable", "error", err)
	case ok:
		m.deviceToken = memguard.NewEnclave([]byte(tok))
		m.state = StateNeedsPin
	default:
		m.state = StateDeviceNotActivated
	}
	m.gen++
	m.mu.Unlock()

	m.publish()
	return err
}

// ActivateDevice binds this terminal to a business using owner or manager
// credentials. On success the device token is persisted and the terminal
// moves to the PIN screen. On any failure nothing is committed, so retrying
// is always safe.
func (m *Manager) ActivateDevice(ctx context.Context, email, password, deviceName string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state != StateDeviceNotActivated {
		m.mu.Unlock()
		return ErrAlreadyActivated
	}
	gen := m.gen
	m.setLoadingLocked(true)
	m.mu.Unlock()
	m.publish()
	defer m.clearLoading()

	res, err := m.remote.ActivateDevice(ctx, email, password, deviceName)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateDeviceNotActivated {
		return nil // superseded; a newer operation already moved the machine
	}
	if err != nil {
		m.lastErr = err
		m.logger.Warn("device activation failed", "error", err)
		return err
	}
	if err := m.store.Set(credstore.KeyDeviceToken, res.DeviceToken); err != nil {
		// Without durable binding the next restart would strand the device,
		// so a persist failure fails the activation.
		m.lastErr = err
		m.logger.Error("persisting device token failed", "error", err)
		return err
	}
	m.deviceToken = memguard.NewEnclave([]byte(res.DeviceToken))
	m.state = StateNeedsPin
	m.lastErr = nil
	m.gen++
	m.logger.Info("device activated", "device_name", deviceName)
	return nil
}

// LoginWithPin authenticates an employee on the activated device.
// locationID may be empty to accept the server's default location.
//
// The employee's role is taken from the server-reported current location,
// falling back to the first accessible location. An account with no
// locations fails with ErrNoLocations: silently assigning a default role to
// an unassigned employee would be a privilege grant, not a convenience.
func (m *Manager) LoginWithPin(ctx context.Context, pin, locationID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.state == StateDeviceNotActivated || m.state == StateLoading {
		m.mu.Unlock()
		return ErrNotActivated
	}
	if m.state != StateNeedsPin {
		m.mu.Unlock()
		return ErrAlreadyAuthenticated
	}
	gen := m.gen
	deviceTok, err := openEnclave(m.deviceToken)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.setLoadingLocked(true)
	m.mu.Unlock()
	m.publish()
	defer m.clearLoading()

	res, err := m.remote.LoginWithPin(ctx, pin, deviceTok, locationID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen || m.state != StateNeedsPin {
		return nil
	}
	if err != nil {
		m.lastErr = err
		m.logger.Warn("pin login failed", "error", err)
		return err
	}

	loc := res.CurrentLocation
	if loc == nil && len(res.AccessibleLocations) > 0 {
		first := res.AccessibleLocations[0]
		loc = &first
	}
	if loc == nil {
		m.lastErr = ErrNoLocations
		m.logger.Error("login returned no locations", "employee_id", res.Employee.ID)
		return ErrNoLocations
	}
	if !res.ExpiresAt.After(m.now()) {
		m.lastErr = transport.ErrSessionExpired
		return transport.ErrSessionExpired
	}

	employee := res.Employee
	m.identity = &employee
	m.location = cloneLocation(loc)
	m.available = append([]transport.Location(nil), res.AccessibleLocations...)
	m.token = memguard.NewEnclave([]byte(res.SessionToken))
	m.expiresAt = res.ExpiresAt
	m.state = StateAuthenticated
	m.lastErr = nil
	m.gen++
	m.startRefreshLoopLocked()

	if err := m.store.Set(credstore.KeyLastEmployeeID, employee.ID); err != nil {
		// The hint only pre-selects a name on the PIN pad; losing it is not
		// worth failing a successful login.
		m.logger.Warn("persisting last-employee hint failed", "error", err)
	}

	m.logger.Info("employee authenticated",
		"employee_id", employee.ID,
		"location_id", m.location.ID,
		"role", string(m.location.Role))
	return nil
}

// SwitchLocation re-scopes the session to another location. Location and
// role are replaced together under the lock, so no reader can observe a
// location/role mismatch. On failure the current location is untouched.
func (m *Manager) SwitchLocation(ctx context.Context, locationID string) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	gen := m.gen
	tok, err := openEnclave(m.token)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	loc, err := m.remote.SwitchLocation(ctx, tok, locationID)

	m.mu.Lock()
	if m.gen != gen || m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.logger.Warn("location switch failed", "location_id", locationID, "error", err)
		m.publish()
		return err
	}
	m.location = cloneLocation(loc)
	m.lastErr = nil
	m.mu.Unlock()

	m.publish()
	m.logger.Info("location switched", "location_id", loc.ID, "role", string(loc.Role))
	return nil
}

// Logout ends the session. The remote invalidation call is best effort: its
// failure is logged and swallowed, and local state is always cleared — a
// user can never be failed out of logging out.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return nil
	}
	gen := m.gen
	tok, tokErr := openEnclave(m.token)
	m.mu.Unlock()

	if tokErr == nil {
		if err := m.remote.Logout(ctx, tok); err != nil {
			m.logger.Warn("remote logout failed, clearing local session anyway", "error", err)
		}
	}

	m.mu.Lock()
	if m.gen == gen && m.state == StateAuthenticated {
		m.clearSessionLocked("logout")
	}
	m.mu.Unlock()

	m.publish()
	return nil
}

// DeactivateDevice unbinds the terminal: every persisted and in-memory
// secret is cleared unconditionally and the state returns to
// DeviceNotActivated. Irreversible from the client side — reactivation
// requires fresh owner or manager credentials.
func (m *Manager) DeactivateDevice(ctx context.Context) error {
	// Best-effort remote invalidation of any live session first.
	m.mu.Lock()
	var tok string
	if m.state == StateAuthenticated && m.token != nil {
		tok, _ = openEnclave(m.token)
	}
	m.mu.Unlock()
	if tok != "" {
		if err := m.remote.Logout(ctx, tok); err != nil {
			m.logger.Warn("remote logout during deactivation failed", "error", err)
		}
	}

	clearErr := m.store.ClearAll()

	m.mu.Lock()
	if m.state == StateAuthenticated {
		m.clearSessionLocked("deactivation")
	}
	m.deviceToken = nil
	m.state = StateDeviceNotActivated
	m.gen++
	if clearErr != nil {
		m.lastErr = clearErr
		m.logger.Error("clearing credential store failed", "error", clearErr)
	}
	m.mu.Unlock()

	m.publish()
	m.logger.Info("device deactivated")
	return clearErr
}

// ValidateSession is invoked on app-foreground events so the terminal heals
// immediately on resume instead of waiting for the next periodic tick: an
// already-expired session is cleared, a session inside the refresh window is
// renewed, anything else is a no-op.
func (m *Manager) ValidateSession(ctx context.Context) {
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

// Close stops the refresh loop and releases subscribers. The manager cannot
// be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopRefreshLoopLocked()
	m.mu.Unlock()

	m.subMu.Lock()
	m.subs = make(map[int]func(Snapshot))
	m.subMu.Unlock()
}

// clearSessionLocked wipes identity, location, token and expiry, tears down
// the refresh loop, bumps the generation so in-flight responses become
// inert, and returns the machine to NeedsPin. The device credential is
// retained. Caller holds m.mu.
func (m *Manager) clearSessionLocked(reason string) {
	m.identity = nil
	m.location = nil
	m.available = nil
	m.token = nil
	m.expiresAt = time.Time{}
	m.state = StateNeedsPin
	m.gen++
	m.stopRefreshLoopLocked()
	m.logger.Info("session cleared", "reason", reason)
}

func (m *Manager) setLoadingLocked(v bool) {
	m.loading = v
}

func (m *Manager) clearLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
	m.publish()
}

func cloneLocation(loc *transport.Location) *transport.Location {
	if loc == nil {
		return nil
	}
	c := *loc
	return &c
}

// openEnclave decrypts an enclave into a short-lived string copy.
func openEnclave(e *memguard.Enclave) (string, error) {
	if e == nil {
		return "", ErrNotAuthenticated
	}
	buf, err := e.Open()
	if err != nil {
		return "", err
	}
	defer buf.Destroy()
	return string(buf.Bytes()), nil
}
