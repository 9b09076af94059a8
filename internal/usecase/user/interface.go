package user

import (
	"context"

	domain "user-onboarding-service/internal/domain/user"
)

// Usecase defines the user operations exposed to transports.
type Usecase interface {
	ProcessUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error)
	ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error)
}

// Repository defines the interface for user data access operations.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, SQLite, a caching decorator) to be used interchangeably.
type Repository interface {
	// Save inserts u when it has no ID yet and updates it otherwise.
	// On success u.ID, u.CreatedAt and u.UpdatedAt reflect the stored row.
	Save(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error)
}

// EmailService sends the service welcome notification.
type EmailService interface {
	SendWelcome(ctx context.Context) error
}
