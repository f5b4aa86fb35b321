// Package locks stores account locks, one row per identity.
package locks

import (
	"context"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type Repository interface {
	Upsert(ctx context.Context, lock *models.AccountLock) error
	// Get returns common.ErrorNotFound when the identity has no lock row.
	Get(ctx context.Context, identity string) (*models.AccountLock, error)
	// Delete returns common.ErrorNotFound when there was nothing to delete.
	Delete(ctx context.Context, identity string) error
	List(ctx context.Context) ([]*models.AccountLock, error)
	DeleteAll(ctx context.Context) error
}
