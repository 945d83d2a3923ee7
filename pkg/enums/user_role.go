package enums

import "slices"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	UserRoleEventManager UserRole = "event_manager"
	UserRoleContractor   UserRole = "contractor"
	UserRoleAdmin        UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleEventManager,
	UserRoleContractor,
	UserRoleAdmin,
}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	return slices.Contains(validUserRoles, r)
}

// HasBusinessProfile reports whether users of this role own a business profile
// and therefore pass through verification.
func (r UserRole) HasBusinessProfile() bool {
	return r == UserRoleEventManager || r == UserRoleContractor
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles)
}
