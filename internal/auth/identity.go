package auth

import "github.com/gin-gonic/gin"

// Role is the capability tag carried by an authenticated identity.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleVendor
}

// Identity is the authenticated actor passed into core operations.
type Identity struct {
	UserID string
	Role   Role
}

// IsVendor reports whether the identity acts as a court vendor.
func (i Identity) IsVendor() bool {
	return i.Role == RoleVendor
}

const (
	ctxKeyUserID   = "userID"
	ctxKeyUserRole = "userRole"
)

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}

// GetIdentity returns the identity placed on the context by AuthRequired.
func GetIdentity(c *gin.Context) (Identity, bool) {
	id := c.GetString(ctxKeyUserID)
	if id == "" {
		return Identity{}, false
	}
	return Identity{UserID: id, Role: Role(c.GetString(ctxKeyUserRole))}, true
}
