package shared

import (
	"slices"

	"github.com/google/uuid"
)

// Actor is the request-scoped identity performing an operation.
// It is built once per request by the transport layer and passed explicitly
// into every application service call.
type Actor struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Username    string
	Roles       []string
	Permissions []string
	RequestID   string
}

// WildcardPermission grants every permission
const WildcardPermission = "*"

// HasPermission reports whether the actor holds the permission
func (a Actor) HasPermission(permission string) bool {
	return slices.Contains(a.Permissions, WildcardPermission) || slices.Contains(a.Permissions, permission)
}

// Validate ensures the actor is bound to a tenant
func (a Actor) Validate() error {
	if a.TenantID == uuid.Nil {
		return ErrUnauthorized
	}
	return nil
}

// Require returns ErrForbidden unless the actor holds the permission
func (a Actor) Require(permission string) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if !a.HasPermission(permission) {
		return NewDomainError("FORBIDDEN", "Missing permission: "+permission)
	}
	return nil
}

// SystemActor is used by background workers acting on behalf of a tenant
func SystemActor(tenantID uuid.UUID) Actor {
	return Actor{
		TenantID:    tenantID,
		Username:    "system",
		Permissions: []string{WildcardPermission},
	}
}
