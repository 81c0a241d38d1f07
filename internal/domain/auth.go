package domain

// Principal represents a caller whose identity has been verified, either by
// password or by a signed token.
type Principal struct {
	ID       string `json:"id,omitempty"`
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the principal holds the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}
