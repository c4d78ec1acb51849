package domain

import "slices"

type Role string

const (
	RoleMember      Role = "member"
	RoleStaff       Role = "staff"
	RoleAdmin       Role = "admin"
	RoleMasterAdmin Role = "master_admin"
)

var (
	// StaffRoles may run the back-office: orders, inventory, member lookup.
	StaffRoles = []Role{RoleStaff, RoleAdmin, RoleMasterAdmin}
	// AdminRoles may manage accounts and limits.
	AdminRoles = []Role{RoleAdmin, RoleMasterAdmin}
	// MasterRoles may grant admin rights.
	MasterRoles = []Role{RoleMasterAdmin}
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleStaff, RoleAdmin, RoleMasterAdmin:
		return true
	}
	return false
}

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID   string
	Role Role
}

// Authorize is the single guard run at the entry of every state-changing
// operation. An empty allowed set admits any authenticated actor.
func Authorize(a Actor, allowed ...Role) error {
	if a.ID == "" {
		return &UnauthorizedError{Role: a.Role}
	}
	if len(allowed) == 0 || slices.Contains(allowed, a.Role) {
		return nil
	}
	return &UnauthorizedError{Role: a.Role, Required: allowed}
}

// IsStaff reports whether the role may act on other members' data.
func IsStaff(r Role) bool {
	return slices.Contains(StaffRoles, r)
}
