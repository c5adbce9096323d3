package domain

// Permission names a capability a caller may hold.
type Permission string

const (
	PermissionManageUsers Permission = "manage_users"
	PermissionViewProfile Permission = "view_profile"
)

// capabilities is the authoritative role-to-permission table. Roles grant
// exactly what is listed here; there is no hierarchy between roles.
var capabilities = map[Role]map[Permission]bool{
	RoleUser: {
		PermissionViewProfile: true,
	},
	RoleAdmin: {
		PermissionViewProfile: true,
		PermissionManageUsers: true,
	},
}

// Can reports whether the role grants the given permission.
func (r Role) Can(p Permission) bool {
	grants, ok := capabilities[r]
	if !ok {
		return false
	}
	return grants[p]
}
