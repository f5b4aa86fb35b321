package attempts

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/refinery/internal/dbx"
	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Add(ctx context.Context, a *models.FailedAttempt) error {
	query := `
		INSERT INTO failed_attempts (origin, identity, attempted_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, a.Origin, a.Identity, a.AttemptedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountByOrigin(ctx context.Context, origin string, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM failed_attempts
		WHERE origin = $1 AND attempted_at >= $2 AND attempted_at <= $3
	`
	return r.count(ctx, query, origin, since, until)
}

func (r *PostgresRepository) CountByIdentity(ctx context.Context, identity string, since, until time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM failed_attempts
		WHERE identity = $1 AND attempted_at >= $2 AND attempted_at <= $3
	`
	return r.count(ctx, query, identity, since, until)
}

func (r *PostgresRepository) count(ctx context.Context, query string, key string, since, until time.Time) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, key, since, until).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM failed_attempts`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
