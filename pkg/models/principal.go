package models

// Role values a principal may carry.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal identifies the authenticated caller of a request. Created
// at signup (disabled until approved) and soft-disabled rather than
// deleted.
type Principal struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Disabled bool   `json:"disabled"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
