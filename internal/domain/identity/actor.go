package identity

import (
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Actor is the authenticated principal performing an operation, carried
// from JWT claims into the application layer without a user lookup.
type Actor struct {
	UserID   uuid.UUID
	Username string
	Role     Role
}

// IsAdmin returns true for admin actors
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Can reports whether the actor's role grants the capability
func (a Actor) Can(c Capability) bool {
	if adminOnly[c] {
		return a.Role == RoleAdmin
	}
	return true
}

// Authorize returns ErrForbidden unless the actor holds the capability
func (a Actor) Authorize(c Capability) error {
	if !a.Can(c) {
		return shared.ErrForbidden
	}
	return nil
}

// CanAccess reports whether the actor may see a record created by ownerID
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsAdmin() || a.UserID == ownerID
}
