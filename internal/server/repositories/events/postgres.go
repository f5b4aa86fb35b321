package events

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
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

func (r *PostgresRepository) Add(ctx context.Context, e *models.SecurityEvent) error {
	query := `
		INSERT INTO security_events (id, origin, identity, kind, description, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query,
		e.ID, e.Origin, e.Identity, string(e.Kind), e.Description, string(e.Severity), e.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// where renders the filter as a WHERE clause with positional arguments.
func where(f models.EventFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if f.Kind != "" {
		add("kind = $%d", string(f.Kind))
	}
	if f.Origin != "" {
		add("origin = $%d", f.Origin)
	}
	if f.Identity != "" {
		add("identity = $%d", f.Identity)
	}
	if !f.Since.IsZero() {
		add("created_at >= $%d", f.Since)
	}
	if !f.Until.IsZero() {
		add("created_at <= $%d", f.Until)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostgresRepository) List(ctx context.Context, f models.EventFilter) ([]*models.SecurityEvent, int, error) {
	clause, args := where(f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM security_events`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT id, origin, identity, kind, description, severity, created_at FROM security_events` +
		clause + fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.SecurityEvent
	for rows.Next() {
		var (
			e        models.SecurityEvent
			identity sql.NullString
			kind     string
			severity string
		)
		if err := rows.Scan(&e.ID, &e.Origin, &identity, &kind, &e.Description, &severity, &e.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("db error: %w", err)
		}
		if identity.Valid {
			e.Identity = &identity.String
		}
		e.Kind = models.EventKind(kind)
		e.Severity = models.Severity(severity)
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return result, total, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, since time.Time) ([]models.EventStat, error) {
	query := `
		SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, severity, COUNT(*)
		FROM security_events
		WHERE created_at >= $1
		GROUP BY day, severity
		ORDER BY day, severity
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.EventStat
	for rows.Next() {
		var (
			s        models.EventStat
			severity string
		)
		if err := rows.Scan(&s.Day, &severity, &s.Count); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		s.Severity = models.Severity(severity)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM security_events`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
