package auth

import "errors"

// Role represents an authorisation tier for API clients.
type Role string

const (
	// RoleViewer may read status, readings, relay state and the audit trail.
	RoleViewer Role = "viewer"

	// RoleOperator may additionally connect, change setpoints, switch
	// relays and tear down hardware.
	RoleOperator Role = "operator"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Domain errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenMissing = errors.New("missing bearer token")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrInvalidRole  = errors.New("invalid role")
	ErrNoSecret     = errors.New("signing secret is empty")
)
