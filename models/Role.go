package models

// Role is the closed set of chat participant kinds. Admins exist as users
// but never take part in a conversation.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor
}

// Counterpart returns the other side of a conversation.
func (r Role) Counterpart() Role {
	if r == RoleCustomer {
		return RoleVendor
	}
	return RoleCustomer
}

// UnreadColumn maps a role to its unread-counter column on conversations.
// Column names come from this closed mapping, never from request input.
func (r Role) UnreadColumn() string {
	if r == RoleCustomer {
		return "customer_unread_count"
	}
	return "vendor_unread_count"
}

func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
