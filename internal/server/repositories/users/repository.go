// Package users stores dashboard accounts and their credential hashes.
package users

import (
	"context"

	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound for unknown usernames.
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}
