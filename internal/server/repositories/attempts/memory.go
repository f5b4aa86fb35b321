package attempts

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type MemoryRepository struct {
	mu  sync.RWMutex
	log []models.FailedAttempt
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Add(ctx context.Context, a *models.FailedAttempt) error {
	rec := *a
	if a.Identity != nil {
		id := *a.Identity
		rec.Identity = &id
	}
	r.mu.Lock()
	r.log = append(r.log, rec)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) CountByOrigin(ctx context.Context, origin string, since, until time.Time) (int, error) {
	return r.count(since, until, func(a *models.FailedAttempt) bool { return a.Origin == origin }), nil
}

func (r *MemoryRepository) CountByIdentity(ctx context.Context, identity string, since, until time.Time) (int, error) {
	return r.count(since, until, func(a *models.FailedAttempt) bool {
		return a.Identity != nil && *a.Identity == identity
	}), nil
}

func (r *MemoryRepository) count(since, until time.Time, match func(*models.FailedAttempt) bool) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for i := range r.log {
		a := &r.log[i]
		if a.AttemptedAt.Before(since) || a.AttemptedAt.After(until) {
			continue
		}
		if match(a) {
			n++
		}
	}
	return n
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	r.log = nil
	r.mu.Unlock()
	return nil
}
