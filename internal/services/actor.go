// internal/services/actor.go
package services

import (
	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/models"
)

// Actor is the authenticated user a service call runs on behalf of.
type Actor struct {
	ID   uuid.UUID
	Role models.UserRole
}

func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

func (a Actor) ref() *uuid.UUID {
	id := a.ID
	return &id
}

// canSee reports whether the actor may read a record owned by ownerID.
func (a Actor) canSee(ownerID uuid.UUID) bool {
	return a.IsStaff() || a.ID == ownerID
}
