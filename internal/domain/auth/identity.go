// Package auth models the caller identity handed over by the external auth
// service and the capability levels operations require. Token issuance and
// credential storage live outside this system; verified claims arrive here
// as an opaque Identity.
package auth

import "github.com/go-faster/errors"

// Capability is the access level an operation requires.
type Capability int

const (
	// Public operations accept anonymous callers.
	Public Capability = iota
	// Authenticated operations require a verified identity.
	Authenticated
	// Admin operations require the staff flag on the identity.
	Admin
)

// Sentinel errors for the authorization gate.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("admin capability required")
)

// Identity is a verified caller. The zero value is anonymous.
type Identity struct {
	UserID string
	Name   string
	Admin  bool
}

// Anonymous reports whether the identity carries no verified user.
func (id Identity) Anonymous() bool {
	return id.UserID == ""
}

// Authorize is the single gate checked before an operation body runs.
func Authorize(id Identity, c Capability) error {
	switch c {
	case Public:
		return nil
	case Authenticated:
		if id.Anonymous() {
			return ErrUnauthenticated
		}
		return nil
	case Admin:
		if id.Anonymous() {
			return ErrUnauthenticated
		}
		if !id.Admin {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
