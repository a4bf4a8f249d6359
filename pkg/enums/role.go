package enums

import "fmt"

// Role is the closed set of marketplace actors.
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleFarmer        Role = "farmer"
	RoleDeliveryAgent Role = "delivery_agent"
	RoleAdmin         Role = "admin"
)

var validRoles = []Role{
	RoleCustomer,
	RoleFarmer,
	RoleDeliveryAgent,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

// SelfRegistrable reports whether a user may pick this role at signup.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleCustomer, RoleFarmer, RoleDeliveryAgent:
		return true
	case RoleAdmin:
		return false
	}
	return false
}

// HomePath returns the dashboard path for the role.
func HomePath(r Role) (string, error) {
	switch r {
	case RoleCustomer:
		return "/customer", nil
	case RoleFarmer:
		return "/farmer", nil
	case RoleDeliveryAgent:
		return "/delivery", nil
	case RoleAdmin:
		return "/admin", nil
	}
	return "", fmt.Errorf("invalid role %q", string(r))
}
