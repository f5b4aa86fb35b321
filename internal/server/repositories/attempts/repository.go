// Package attempts stores the append-only failed-attempt log. Counts are
// always computed over a time window from the log itself, never kept as a
// running counter.
package attempts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, attempt *models.FailedAttempt) error
	// CountByOrigin counts attempts from origin with since <= attempted_at <= until.
	CountByOrigin(ctx context.Context, origin string, since, until time.Time) (int, error)
	// CountByIdentity counts attempts for identity with since <= attempted_at <= until.
	CountByIdentity(ctx context.Context, identity string, since, until time.Time) (int, error)
	DeleteAll(ctx context.Context) error
}
