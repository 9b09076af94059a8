package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-onboarding-service/internal/domain/user"
	apperrors "user-onboarding-service/pkg/errors"
	"user-onboarding-service/pkg/logger"
	"user-onboarding-service/pkg/security"
)

// UserRepoPG implements the user Repository with GORM.
// It is exercised against PostgreSQL in production and SQLite in tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Save inserts u when it is new and updates the stored row otherwise.
// The generated ID and timestamps are written back into u.
func (r *UserRepoPG) Save(ctx context.Context, u *user.User) error {
	if u == nil {
		return apperrors.NewValidationError("user", "user cannot be nil")
	}
	l := logger.WithContext(ctx, r.log)

	if u.IsNew() {
		model := UserSchema{Name: u.Name, Email: u.Email}
		if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				l.Warn("email already exists", zap.String("email", u.Email))
				return apperrors.NewAlreadyExistsError("user", "email already exists")
			}
			l.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
			return apperrors.NewInternalError("failed to create user", err)
		}
		fromSchema(&model, u)
		l.Info("user created in db", zap.Int64("id", u.ID))
		return nil
	}

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, u.ID).Error; err != nil {
			return err
		}
		model.Name = u.Name
		model.Email = u.Email
		return tx.Save(&model).Error
	})
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		l.Warn("user to update not found", zap.Int64("id", u.ID))
		return apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", u.ID))
	case isUniqueViolation(err):
		l.Warn("email already exists", zap.String("email", u.Email), zap.Int64("id", u.ID))
		return apperrors.NewAlreadyExistsError("user", "email already exists")
	default:
		l.Error("failed to update user in db", zap.Error(err), zap.Int64("id", u.ID))
		return apperrors.NewInternalError("failed to update user", err)
	}

	fromSchema(&model, u)
	l.Info("user updated in db", zap.Int64("id", u.ID))
	return nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithContext(ctx, r.log).Debug("user not found", zap.Int64("id", id))
			return nil, apperrors.NewNotFoundError("user", fmt.Sprintf("user not found: id=%d", id))
		}
		logger.WithContext(ctx, r.log).Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	var u user.User
	fromSchema(&model, &u)
	return &u, nil
}

// List returns one page of users whose name or email contains query, and the
// total number of matches. Matching is case-insensitive.
func (r *UserRepoPG) List(ctx context.Context, query string, page, limit int64) ([]user.User, int64, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, apperrors.NewValidationError("page", "page and limit must be positive")
	}

	q := r.db.WithContext(ctx).Model(&UserSchema{})
	if query != "" {
		pattern := strings.ToLower(security.LikePattern(query))
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		logger.WithContext(ctx, r.log).Error("failed to count users", zap.Error(err), zap.String("query", query))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	var models []UserSchema
	if err := q.Order("id").Offset(int(user.PageOffset(page, limit))).Limit(int(limit)).Find(&models).Error; err != nil {
		logger.WithContext(ctx, r.log).Error("failed to list users from db", zap.Error(err), zap.String("query", query), zap.Int64("page", page), zap.Int64("limit", limit))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		fromSchema(&models[i], &users[i])
	}
	return users, total, nil
}

func fromSchema(m *UserSchema, u *user.User) {
	u.ID = m.ID
	u.Name = m.Name
	u.Email = m.Email
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
}

// isUniqueViolation detects unique constraint errors from either driver,
// with or without GORM error translation enabled.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
