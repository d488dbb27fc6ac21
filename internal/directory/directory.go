// Package directory defines the read-only ports through which badgehub sees
// users, events and enrollments owned by other services.
package directory

import (
	"context"

	"badgehub/internal/directory/models"
	id "badgehub/pkg/domain"
)

// EnrollmentReader reads enrollments. Lookups of unknown records return
// sentinel.ErrNotFound.
type EnrollmentReader interface {
	FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	FindByUserAndEvent(ctx context.Context, userID id.UserID, eventID id.EventID) (*models.Enrollment, error)
	CountApprovedByUser(ctx context.Context, userID id.UserID) (int, error)
	CountApprovedByEvent(ctx context.Context, eventID id.EventID) (int, error)
}

// EventReader reads events.
type EventReader interface {
	FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error)
}

// UserReader reads users.
type UserReader interface {
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	ListWithoutPersonBadge(ctx context.Context, limit int) ([]*models.User, error)
	CountWithoutPersonBadge(ctx context.Context) (int, error)
}
