package locks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/dbx"
	"github.com/dmitrijs2005/refinery/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, l *models.AccountLock) error {
	query := `
		INSERT INTO account_locks (identity, locked_until, reason, failed_attempts, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO UPDATE SET
			locked_until = EXCLUDED.locked_until,
			reason = EXCLUDED.reason,
			failed_attempts = EXCLUDED.failed_attempts,
			created_at = EXCLUDED.created_at
	`
	if _, err := r.db.ExecContext(ctx, query, l.Identity, l.LockedUntil, l.Reason, l.FailedAttempts, l.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectColumns = `SELECT identity, locked_until, reason, failed_attempts, created_at FROM account_locks`

func (r *PostgresRepository) Get(ctx context.Context, identity string) (*models.AccountLock, error) {
	l := &models.AccountLock{}
	err := r.db.QueryRowContext(ctx, selectColumns+` WHERE identity = $1`, identity).
		Scan(&l.Identity, &l.LockedUntil, &l.Reason, &l.FailedAttempts, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return l, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, identity string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM account_locks WHERE identity = $1`, identity)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.AccountLock, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccountLock
	for rows.Next() {
		l := &models.AccountLock{}
		if err := rows.Scan(&l.Identity, &l.LockedUntil, &l.Reason, &l.FailedAttempts, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM account_locks`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
