package blocks

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	blocks map[string]models.BlockedOrigin
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blocks: make(map[string]models.BlockedOrigin)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, b *models.BlockedOrigin) error {
	r.mu.Lock()
	r.blocks[b.Origin] = *b
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, origin string) (*models.BlockedOrigin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.blocks[origin]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, origin string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[origin]; !ok {
		return common.ErrorNotFound
	}
	delete(r.blocks, origin)
	return nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]*models.BlockedOrigin, error) {
	r.mu.RLock()
	result := make([]*models.BlockedOrigin, 0, len(r.blocks))
	for _, b := range r.blocks {
		b := b
		result = append(result, &b)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	r.blocks = make(map[string]models.BlockedOrigin)
	r.mu.Unlock()
	return nil
}
