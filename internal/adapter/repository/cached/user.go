package cached

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-onboarding-service/internal/adapter/cache"
	domain "user-onboarding-service/internal/domain/user"
	"user-onboarding-service/internal/usecase/user"
)

// UserRepository implements user.Repository with caching support.
// It wraps a persistent repository and a cache implementation; a nil cache
// turns it into a pass-through.
type UserRepository struct {
	dbRepo user.Repository
	cache  cache.UserCache
	log    *zap.Logger
	group  singleflight.Group

	// mu orders cache fills against invalidations; writes counts Saves.
	mu     sync.Mutex
	writes uint64
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new caching repository.
func NewUserRepository(dbRepo user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		dbRepo: dbRepo,
		cache:  c,
		log:    log,
	}
}

// Save writes through to the DB repository, then drops the cached entry.
// A load that read the row before the write does not cache its result, so
// within this process a stale value cannot outlive the Save.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	if err := r.dbRepo.Save(ctx, u); err != nil {
		return err
	}
	if r.cache == nil || u == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes++
	if err := r.cache.Delete(ctx, u.ID); err != nil {
		r.log.Warn("failed to invalidate cache after save", zap.Int64("id", u.ID), zap.Error(err))
	}
	return nil
}

func (r *UserRepository) writeCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// fill caches u unless a Save completed since the load began at seen.
func (r *UserRepository) fill(ctx context.Context, u *domain.User, seen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writes != seen {
		r.log.Debug("skipping cache fill after concurrent save", zap.Int64("id", u.ID))
		return
	}
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.Int64("id", u.ID), zap.Error(err))
	}
}

// GetByID retrieves a user by ID using Cache-Aside pattern.
// Concurrent misses for the same ID share one database read.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if r.cache != nil {
		cachedUser, err := r.cache.Get(ctx, id)
		if err != nil {
			r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		} else if cachedUser != nil {
			return cachedUser, nil
		}
	}

	result, err, shared := r.group.Do(fmt.Sprintf("user:%d", id), func() (any, error) {
		seen := r.writeCount()
		u, err := r.dbRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if r.cache != nil {
			r.fill(ctx, u, seen)
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.log.Debug("user load shared between callers", zap.Int64("id", id))
	}

	// callers sharing a load must not alias one struct
	u := *result.(*domain.User)
	return &u, nil
}

// List delegates to the DB repository.
func (r *UserRepository) List(ctx context.Context, query string, page, limit int64) ([]domain.User, int64, error) {
	return r.dbRepo.List(ctx, query, page, limit)
}
