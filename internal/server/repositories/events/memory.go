package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	events []models.SecurityEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Add(ctx context.Context, e *models.SecurityEvent) error {
	r.mu.Lock()
	r.events = append(r.events, *e)
	r.mu.Unlock()
	return nil
}

func matches(e *models.SecurityEvent, f models.EventFilter) bool {
	if f.Severity != "" && e.Severity != f.Severity {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Origin != "" && e.Origin != f.Origin {
		return false
	}
	if f.Identity != "" && (e.Identity == nil || *e.Identity != f.Identity) {
		return false
	}
	if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.CreatedAt.After(f.Until) {
		return false
	}
	return true
}

func (r *MemoryRepository) List(ctx context.Context, f models.EventFilter) ([]*models.SecurityEvent, int, error) {
	r.mu.RLock()
	var all []*models.SecurityEvent
	for i := range r.events {
		if matches(&r.events[i], f) {
			e := r.events[i]
			all = append(all, &e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < total {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func (r *MemoryRepository) Stats(ctx context.Context, since time.Time) ([]models.EventStat, error) {
	type key struct {
		day      time.Time
		severity models.Severity
	}
	counts := make(map[key]int)

	r.mu.RLock()
	for _, e := range r.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		counts[key{e.CreatedAt.UTC().Truncate(24 * time.Hour), e.Severity}]++
	}
	r.mu.RUnlock()

	result := make([]models.EventStat, 0, len(counts))
	for k, n := range counts {
		result = append(result, models.EventStat{Day: k.day, Severity: k.severity, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.Before(result[j].Day)
		}
		return result[i].Severity < result[j].Severity
	})
	return result, nil
}

func (r *MemoryRepository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
	return nil
}
