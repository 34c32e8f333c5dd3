// Package stubserver implements an in-memory development backend speaking
// the same wire protocol the transport client consumes. It backs the
// `posauth devserver` command and the transport integration tests; it is not
// a production server.
package stubserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opencounter/posauth/permission"
)

const defaultSessionTTL = time.Hour

// Account is an owner or manager login able to activate devices.
type Account struct {
	Email    string
	Password string
}

// Employee is a PIN-authenticated staff member. Roles maps location ID to
// the employee's role at that location.
type Employee struct {
	ID              string
	Name            string
	Pin             string
	Roles           map[string]permission.Role
	DefaultLocation string
}

// Location is one business location.
type Location struct {
	ID   string
	Name string
}

// Seed is the business data the server starts with.
type Seed struct {
	Accounts  []Account
	Employees []Employee
	Locations []Location
}

// DefaultSeed returns a small two-location business: an owner, a manager,
// and a cashier who moonlights as a manager at the second location.
func DefaultSeed() Seed {
	return Seed{
		Accounts: []Account{
			{Email: "owner@example.test", Password: "owner-password"},
		},
		Locations: []Location{
			{ID: "loc-1", Name: "Downtown"},
			{ID: "loc-2", Name: "Uptown"},
		},
		Employees: []Employee{
			{
				ID: "emp-1", Name: "Alex Owner", Pin: "1111",
				Roles: map[string]permission.Role{
					"loc-1": permission.RoleOwner,
					"loc-2": permission.RoleOwner,
				},
				DefaultLocation: "loc-1",
			},
			{
				ID: "emp-2", Name: "Dana Till", Pin: "2222",
				Roles: map[string]permission.Role{
					"loc-1": permission.RoleCashier,
					"loc-2": permission.RoleManager,
				},
				DefaultLocation: "loc-1",
			},
			{
				ID: "emp-3", Name: "Sam Books", Pin: "3333",
				Roles: map[string]permission.Role{
					"loc-1": permission.RoleAccountant,
				},
				DefaultLocation: "loc-1",
			},
		},
	}
}

type serverSession struct {
	employeeID string
	locationID string
	expiresAt  time.Time
}

// Server holds the in-memory state behind the stub API.
type Server struct {
	logger     *slog.Logger
	sessionTTL time.Duration
	seed       Seed
	lockout    *pinLockout

	mu       sync.Mutex
	devices  map[string]bool
	sessions map[string]*serverSession
}

// Option configures the stub server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSessionTTL sets how long issued sessions live.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithSeed replaces the default business data.
func WithSeed(seed Seed) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// New creates a stub server with the default seed.
func New(opts ...Option) *Server {
	s := &Server{
		sessionTTL: defaultSessionTTL,
		seed:       DefaultSeed(),
		lockout:    newPinLockout(),
		devices:    make(map[string]bool),
		sessions:   make(map[string]*serverSession),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return s
}

// Router returns the chi router with all stub routes mounted.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Post("/devices/activations", s.handleActivate)
		r.Post("/sessions", s.handleLogin)
		r.Post("/sessions/refresh", s.handleRefresh)
		r.Post("/sessions/location", s.handleSwitchLocation)
		r.Delete("/sessions", s.handleLogout)
	})
	return r
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return v, false
	}
	return v, true
}

type activateRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceName string `json:"device_name"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[activateRequest](w, r)
	if !ok {
		return
	}
	if !s.validAccount(req.Email, req.Password) {
		s.logger.Warn("activation rejected", "email", req.Email)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "unknown email or password")
		return
	}

	token := "dev-" + uuid.NewString()
	s.mu.Lock()
	s.devices[token] = true
	s.mu.Unlock()

	s.logger.Info("device activated", "device_name", req.DeviceName)
	writeJSON(w, http.StatusCreated, map[string]string{"device_token": token})
}

func (s *Server) validAccount(email, password string) bool {
	for _, a := range s.seed.Accounts {
		if strings.EqualFold(a.Email, email) && a.Password == password {
			return true
		}
	}
	return false
}

type loginRequest struct {
	Pin        string `json:"pin"`
	LocationID string `json:"location_id"`
}

type locationPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	deviceToken := bearerToken(r)
	s.mu.Lock()
	known := s.devices[deviceToken]
	s.mu.Unlock()
	if !known {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unknown device token")
		return
	}

	if s.lockout.locked(deviceToken) {
		writeError(w, http.StatusForbidden, "account_locked", "too many failed PIN attempts")
		return
	}

	req, ok := decodeJSON[loginRequest](w, r)
	if !ok {
		return
	}

	emp := s.findEmployeeByPin(req.Pin)
	if emp == nil {
		// The failed attempt itself still reads as a wrong PIN; the lockout
		// bites from the next attempt onward.
		s.lockout.recordFailure(deviceToken)
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "wrong PIN")
		return
	}
	s.lockout.recordSuccess(deviceToken)

	locationID := req.LocationID
	if locationID == "" {
		locationID = emp.DefaultLocation
	}
	current := s.locationPayloadFor(emp, locationID)

	token := "sess-" + uuid.NewString()
	expiresAt := time.Now().Add(s.sessionTTL)
	s.mu.Lock()
	sess := &serverSession{employeeID: emp.ID, expiresAt: expiresAt}
	if current != nil {
		sess.locationID = current.ID
	}
	s.sessions[token] = sess
	s.mu.Unlock()

	resp := map[string]any{
		"session_token":        token,
		"employee":             map[string]string{"id": emp.ID, "name": emp.Name},
		"accessible_locations": s.accessibleLocations(emp),
		"expires_at":           expiresAt,
	}
	if current != nil {
		resp["current_location"] = current
	}

	s.logger.Info("employee logged in", "employee_id", emp.ID)
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) findEmployeeByPin(pin string) *Employee {
	for i := range s.seed.Employees {
		if s.seed.Employees[i].Pin == pin {
			return &s.seed.Employees[i]
		}
	}
	return nil
}

func (s *Server) locationName(id string) string {
	for _, loc := range s.seed.Locations {
		if loc.ID == id {
			return loc.Name
		}
	}
	return id
}

// locationPayloadFor resolves the employee's location context, preferring
// the requested location, else their default, else nothing.
func (s *Server) locationPayloadFor(emp *Employee, locationID string) *locationPayload {
	if role, ok := emp.Roles[locationID]; ok {
		return &locationPayload{ID: locationID, Name: s.locationName(locationID), Role: string(role)}
	}
	if role, ok := emp.Roles[emp.DefaultLocation]; ok {
		return &locationPayload{ID: emp.DefaultLocation, Name: s.locationName(emp.DefaultLocation), Role: string(role)}
	}
	return nil
}

func (s *Server) accessibleLocations(emp *Employee) []locationPayload {
	out := []locationPayload{}
	for _, loc := range s.seed.Locations {
		if role, ok := emp.Roles[loc.ID]; ok {
			out = append(out, locationPayload{ID: loc.ID, Name: loc.Name, Role: string(role)})
		}
	}
	return out
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok && time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "session_expired", "session expired")
		return
	}
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "unauthorized", "unknown session token")
		return
	}

	// Rotate the token on refresh.
	delete(s.sessions, token)
	newToken := "sess-" + uuid.NewString()
	sess.expiresAt = time.Now().Add(s.sessionTTL)
	s.sessions[newToken] = sess
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"session_token": newToken,
		"expires_at":    sess.expiresAt,
	})
}

type switchLocationRequest struct {
	LocationID string `json:"location_id"`
}

func (s *Server) handleSwitchLocation(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)

	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "unknown session token")
		return
	}

	req, ok2 := decodeJSON[switchLocationRequest](w, r)
	if !ok2 {
		return
	}

	emp := s.findEmployeeByID(sess.employeeID)
	if emp == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "employee no longer exists")
		return
	}
	role, allowed := emp.Roles[req.LocationID]
	if !allowed {
		writeError(w, http.StatusForbidden, "forbidden", "no role at that location")
		return
	}

	s.mu.Lock()
	sess.locationID = req.LocationID
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"current_location": locationPayload{
			ID:   req.LocationID,
			Name: s.locationName(req.LocationID),
			Role: string(role),
		},
	})
}

func (s *Server) findEmployeeByID(id string) *Employee {
	for i := range s.seed.Employees {
		if s.seed.Employees[i].ID == id {
			return &s.seed.Employees[i]
		}
	}
	return nil
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}
