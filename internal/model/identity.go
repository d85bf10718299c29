package model

// Role is the role claim carried by access tokens.
type Role string

const (
    RoleCustomer Role = "CUSTOMER"
    RoleAdmin    Role = "ADMIN"
)

// Identity is the verified caller of an operation.  It is produced by the
// JWT middleware and trusted as-is by the booking engine.
type Identity struct {
    UserID uint64
    Role   Role
}

// IsAdmin reports whether the identity has administrator rights.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
