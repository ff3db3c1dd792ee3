package auth

// Role is an admin role for role-based access control
type Role string

const (
	// RoleAdmin may edit the tariff catalog and trigger refreshes
	RoleAdmin Role = "admin"

	// RoleViewer may read admin endpoints
	RoleViewer Role = "viewer"
)

func (r Role) String() string {
	return string(r)
}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission reports whether r satisfies required. Admin satisfies every role.
func (r Role) HasPermission(required Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == required
}

// AnyPermits reports whether any of granted satisfies any of required.
// An empty required list permits everyone.
func AnyPermits(granted []string, required ...Role) bool {
	if len(required) == 0 {
		return true
	}
	for _, need := range required {
		for _, have := range granted {
			if Role(have).HasPermission(need) {
				return true
			}
		}
	}
	return false
}
