package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"github.com/google/uuid"
)

const (
	DefaultEventLimit = 50
	MaxEventLimit     = 500

	DefaultStatsDays = 7
	MaxStatsDays     = 90
)

// AuditService appends to and reads from the security event log.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       timex.Clock
	log         logging.Logger
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, log logging.Logger) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		clock:       clock,
		log:         log.With("module", "audit"),
	}
}

// Record stamps the event with an id and the current time and stores it.
// Events of high or critical severity are also logged at warn level.
func (s *AuditService) Record(ctx context.Context, e *models.SecurityEvent) error {
	if !e.Severity.Valid() {
		return fmt.Errorf("%w: severity %q", common.ErrorValidation, e.Severity)
	}
	e.ID = uuid.NewString()
	e.CreatedAt = s.clock.Now()

	if e.Severity == models.SeverityHigh || e.Severity == models.SeverityCritical {
		s.log.Warn(ctx, "security event", "kind", e.Kind, "severity", e.Severity, "origin", e.Origin, "description", e.Description)
	}

	if err := s.repomanager.Events(s.db).Add(ctx, e); err != nil {
		return fmt.Errorf("error recording security event: %w", err)
	}
	return nil
}

// List returns a page of events, newest first, with the total match count.
// A zero limit selects DefaultEventLimit; limits above MaxEventLimit are
// clamped.
func (s *AuditService) List(ctx context.Context, f models.EventFilter) ([]*models.SecurityEvent, int, error) {
	if f.Severity != "" && !f.Severity.Valid() {
		return nil, 0, fmt.Errorf("%w: severity %q", common.ErrorValidation, f.Severity)
	}
	if f.Offset < 0 || f.Limit < 0 {
		return nil, 0, fmt.Errorf("%w: negative limit or offset", common.ErrorValidation)
	}
	if f.Limit == 0 {
		f.Limit = DefaultEventLimit
	}
	if f.Limit > MaxEventLimit {
		f.Limit = MaxEventLimit
	}

	events, total, err := s.repomanager.Events(s.db).List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing security events: %w", err)
	}
	return events, total, nil
}

// Stats counts events by UTC day and severity for the last days days,
// today included.
func (s *AuditService) Stats(ctx context.Context, days int) ([]models.EventStat, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		days = MaxStatsDays
	}
	today := s.clock.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	stats, err := s.repomanager.Events(s.db).Stats(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("error computing event stats: %w", err)
	}
	return stats, nil
}
