// Package events stores the append-only security event log.
package events

import (
	"context"
	"time"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, event *models.SecurityEvent) error
	// List returns one page of events, newest first, and the total number of
	// events matching the filter.
	List(ctx context.Context, filter models.EventFilter) ([]*models.SecurityEvent, int, error)
	// Stats groups events created at or after since by UTC day and severity.
	Stats(ctx context.Context, since time.Time) ([]models.EventStat, error)
	DeleteAll(ctx context.Context) error
}
