// Package credstore defines the secure credential store that persists the
// terminal's long-lived secrets across process restarts. The session manager
// is the only component that reads or writes it.
package credstore

// Well-known keys. Values are opaque strings owned by the session manager.
const (
	// KeyDeviceToken is the long-lived token binding this terminal to a
	// business, issued once during activation.
	KeyDeviceToken = "device_token"
	// KeyLastEmployeeID is a convenience hint for pre-selecting the employee
	// on the PIN screen. Not security sensitive, but kept in the same store
	// so ClearAll wipes everything in one place.
	KeyLastEmployeeID = "last_employee_id"
)

// Store persists a small set of string-valued secrets. A missing key is a
// normal empty result ("", false, nil), never an error. Set overwrites
// atomically. ClearAll removes every key the store owns; it backs device
// deactivation and the defensive reset on corrupt state.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
	ClearAll() error
}
