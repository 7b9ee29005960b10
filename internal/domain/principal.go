package domain

// Roles carried in access tokens.
const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor may change a resource owned by ownerID.
func (a Actor) CanModify(ownerID string) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == ownerID)
}
