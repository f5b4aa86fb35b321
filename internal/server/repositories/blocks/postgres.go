package blocks

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

func (r *PostgresRepository) Upsert(ctx context.Context, b *models.BlockedOrigin) error {
	query := `
		INSERT INTO blocked_origins (origin, blocked_until, permanent, reason, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (origin) DO UPDATE SET
			blocked_until = EXCLUDED.blocked_until,
			permanent = EXCLUDED.permanent,
			reason = EXCLUDED.reason,
			actor = EXCLUDED.actor,
			created_at = EXCLUDED.created_at
	`
	var until sql.NullTime
	if !b.Permanent {
		until = sql.NullTime{Time: b.BlockedUntil, Valid: true}
	}
	if _, err := r.db.ExecContext(ctx, query, b.Origin, until, b.Permanent, b.Reason, b.Actor, b.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const selectColumns = `SELECT origin, blocked_until, permanent, reason, actor, created_at FROM blocked_origins`

func (r *PostgresRepository) Get(ctx context.Context, origin string) (*models.BlockedOrigin, error) {
	query := selectColumns + ` WHERE origin = $1`

	b, err := scanBlock(r.db.QueryRowContext(ctx, query, origin))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, origin string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_origins WHERE origin = $1`, origin)
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

func (r *PostgresRepository) List(ctx context.Context) ([]*models.BlockedOrigin, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.BlockedOrigin
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_origins`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(s scanner) (*models.BlockedOrigin, error) {
	b := &models.BlockedOrigin{}
	var until sql.NullTime
	if err := s.Scan(&b.Origin, &until, &b.Permanent, &b.Reason, &b.Actor, &b.CreatedAt); err != nil {
		return nil, err
	}
	if until.Valid {
		b.BlockedUntil = until.Time
	}
	return b, nil
}
