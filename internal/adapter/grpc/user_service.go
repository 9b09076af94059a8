package grpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	domain "user-onboarding-service/internal/domain/user"
	"user-onboarding-service/internal/usecase/user"
	apperrors "user-onboarding-service/pkg/errors"
	"user-onboarding-service/pkg/logger"
)

type processUserInput struct {
	ID    int64  `validate:"gte=0"`
	Name  string `validate:"required,min=3,max=100"`
	Email string `validate:"required,email"`
}

// UserService implements UserServiceServer on top of the user usecase.
type UserService struct {
	uc       user.Usecase
	validate *validator.Validate
	log      *zap.Logger
}

// NewUserService creates a new gRPC user service.
func NewUserService(uc user.Usecase, log *zap.Logger) *UserService {
	return &UserService{
		uc:       uc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
	}
}

// ProcessUser saves the user described by in and returns its id.
func (s *UserService) ProcessUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	log := logger.WithContext(ctx, s.log)

	req, err := s.decodeProcessUser(in)
	if err != nil {
		log.Warn("invalid ProcessUser request", zap.Error(err))
		return nil, apperrors.ToStatus(err).Err()
	}

	u := &domain.User{ID: req.ID, Name: req.Name, Email: req.Email}
	if err := s.uc.ProcessUser(ctx, u); err != nil {
		log.Error("gRPC ProcessUser failed", zap.Error(err))
		return nil, apperrors.ToStatus(err).Err()
	}

	return structpb.NewStruct(map[string]any{"id": float64(u.ID)})
}

// GetUser returns the user with the requested id.
func (s *UserService) GetUser(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := int64Field(in, "id")
	if err != nil {
		return nil, apperrors.ToStatus(err).Err()
	}

	resp, err := s.uc.GetUser(ctx, user.GetUserRequest{ID: id})
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("gRPC GetUser failed", zap.Int64("id", id), zap.Error(err))
		return nil, apperrors.ToStatus(err).Err()
	}

	return structpb.NewStruct(map[string]any{
		"id":         float64(resp.ID),
		"name":       resp.Name,
		"email":      resp.Email,
		"created_at": resp.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": resp.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func (s *UserService) decodeProcessUser(in *structpb.Struct) (processUserInput, error) {
	var req processUserInput

	id, err := int64Field(in, "id")
	if err != nil && !isMissing(in, "id") {
		return req, err
	}
	req.ID = id
	req.Name = in.GetFields()["name"].GetStringValue()
	req.Email = in.GetFields()["email"].GetStringValue()

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return req, apperrors.NewValidationError(strings.ToLower(fe.Field()), fmt.Sprintf("failed on the %q rule", fe.Tag()))
		}
		return req, apperrors.NewValidationError("request", err.Error())
	}
	return req, nil
}

func isMissing(in *structpb.Struct, name string) bool {
	_, ok := in.GetFields()[name]
	return !ok
}

// int64Field reads an integral number field.
func int64Field(in *structpb.Struct, name string) (int64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, apperrors.NewValidationError(name, "is required")
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, apperrors.NewValidationError(name, "must be a number")
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, apperrors.NewValidationError(name, "must be an integer")
	}
	return int64(f), nil
}
