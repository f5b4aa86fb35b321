// Package blocks stores blocked origins, one row per origin.
package blocks

import (
	"context"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type Repository interface {
	// Upsert inserts the block or replaces the existing one for the same origin.
	Upsert(ctx context.Context, block *models.BlockedOrigin) error
	// Get returns common.ErrorNotFound when the origin has no block row.
	Get(ctx context.Context, origin string) (*models.BlockedOrigin, error)
	// Delete returns common.ErrorNotFound when there was nothing to delete.
	Delete(ctx context.Context, origin string) error
	List(ctx context.Context) ([]*models.BlockedOrigin, error)
	DeleteAll(ctx context.Context) error
}
