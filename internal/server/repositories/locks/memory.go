package locks

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type MemoryRepository struct {
	mu    sync.RWMutex
	locks map[string]models.AccountLock
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{locks: make(map[string]models.AccountLock)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, l *models.AccountLock) error {
	r.mu.Lock()
	r.locks[l.Identity] = *l
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, identity string) (*models.AccountLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.locks[identity]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &l, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locks[identity]; !ok {
		return common.ErrorNotFound
	}
	delete(r.locks, identity)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.AccountLock, error) {
	r.mu.RLock()
	result := make([]*models.AccountLock, 0, len(r.locks))
	for _, l := range r.locks {
		l := l
		result = append(result, &l)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	r.locks = make(map[string]models.AccountLock)
	r.mu.Unlock()
	return nil
}
