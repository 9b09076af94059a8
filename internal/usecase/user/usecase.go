package user

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	domain "user-onboarding-service/internal/domain/user"
	apperrors "user-onboarding-service/pkg/errors"
	"user-onboarding-service/pkg/logger"
	"user-onboarding-service/pkg/security"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Service implements Usecase on top of a Repository.
// The EmailService is only needed while the service is being built.
type Service struct {
	repo Repository  // Repository for data access
	log  *zap.Logger // Logger for structured logging
}

var _ Usecase = (*Service)(nil)

// New builds a Service and sends the welcome notification through mailer.
// Construction fails if either collaborator is missing or the welcome
// notification cannot be sent.
func New(ctx context.Context, r Repository, mailer EmailService, log *zap.Logger) (*Service, error) {
	if r == nil {
		return nil, errors.New("user repository is required")
	}
	if mailer == nil {
		return nil, errors.New("email service is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := mailer.SendWelcome(ctx); err != nil {
		log.Error("failed to send welcome email", zap.Error(err))
		return nil, fmt.Errorf("failed to send welcome email: %w", err)
	}

	log.Info("user service initialized")
	return &Service{repo: r, log: log}, nil
}

// ProcessUser saves u through the repository exactly once.
//
// A draft order is created for the user but never stored or returned.
// TODO: decide whether processing should persist the draft order once an order store exists.
func (s *Service) ProcessUser(ctx context.Context, u *domain.User) error {
	l := logger.WithContext(ctx, s.log)

	if u == nil {
		l.Warn("process user called without a user")
		return apperrors.NewValidationError("user", "user is required")
	}

	order := domain.NewDraftOrder(u)
	l.Debug("processing user",
		zap.Int64("id", u.ID),
		zap.String("email", u.Email),
		zap.String("order_status", string(order.Status)),
	)

	if err := s.repo.Save(ctx, u); err != nil {
		l.Error("failed to save user", zap.Int64("id", u.ID), zap.String("email", u.Email), zap.Error(err))
		return fmt.Errorf("failed to save user: %w", err)
	}

	l.Info("user processed", zap.Int64("id", u.ID))
	return nil
}

// GetUser retrieves a user by ID after validating the request.
func (s *Service) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	l := logger.WithContext(ctx, s.log)

	if in.ID <= 0 {
		l.Warn("get user validation failed", zap.Int64("id", in.ID), zap.String("reason", "invalid id"))
		return nil, apperrors.NewValidationError("id", "invalid user id")
	}

	u, err := s.repo.GetByID(ctx, in.ID)
	if err != nil {
		l.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &GetUserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}, nil
}

// ListUsers retrieves a paginated list of users with optional search functionality.
func (s *Service) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	l := logger.WithContext(ctx, s.log)

	if in.Page <= 0 {
		in.Page = defaultPage
	}
	if in.Limit <= 0 {
		in.Limit = defaultLimit
	}
	if in.Limit > maxLimit {
		in.Limit = maxLimit
	}

	query, err := security.ValidateSearchQuery(in.Query)
	if err != nil {
		l.Warn("invalid search query", zap.String("query", in.Query), zap.Error(err))
		return nil, apperrors.NewValidationError("query", err.Error())
	}

	l.Info("listing users", zap.String("query", query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit))

	domainUsers, total, err := s.repo.List(ctx, query, in.Page, in.Limit)
	if err != nil {
		l.Error("failed to list users", zap.String("query", query), zap.Int64("page", in.Page), zap.Int64("limit", in.Limit), zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i, du := range domainUsers {
		users[i] = User{
			ID:    du.ID,
			Name:  du.Name,
			Email: du.Email,
		}
	}

	p := domain.NewPagination(total, in.Page, in.Limit)
	return &ListUsersResponse{
		Users: users,
		Pagination: &Pagination{
			Total:      p.Total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages,
			HasNext:    p.HasNext(),
		},
	}, nil
}
