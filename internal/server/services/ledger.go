package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/dbx"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/config"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/refinery/internal/timex"
)

const (
	ReasonBruteForce     = "brute force detected"
	ReasonTooManyFailed  = "too many failed attempts"
	ReasonInjectionBlock = "injection attempt detected"
)

// Actor identifies who performed an administrative change and from where.
type Actor struct {
	Name   string
	Origin string
}

// SystemActorAt is the actor used for automatic decisions about origin.
func SystemActorAt(origin string) Actor {
	return Actor{Name: common.SystemActor, Origin: origin}
}

// LedgerSettings are the thresholds and durations of the protection ledger.
// Origin and identity tracks share Window and Threshold but are counted
// independently.
type LedgerSettings struct {
	Threshold   int
	Window      time.Duration
	OriginBlock time.Duration
	AccountLock time.Duration
	AttackBlock time.Duration
}

func LedgerSettingsFromConfig(c *config.Config) LedgerSettings {
	return LedgerSettings{
		Threshold:   c.MaxFailedAttempts,
		Window:      c.FailureWindow,
		OriginBlock: c.OriginBlockDuration,
		AccountLock: c.AccountLockDuration,
		AttackBlock: c.AttackBlockDuration,
	}
}

// FailureOutcome reports which escalations a failure triggered.
type FailureOutcome struct {
	OriginAttempts   int
	IdentityAttempts int
	OriginBlocked    bool
	AccountLocked    bool
}

// BlockSpec describes a block to place on an origin. Duration is ignored
// for permanent blocks.
type BlockSpec struct {
	Origin    string
	Reason    string
	Duration  time.Duration
	Permanent bool
}

// LedgerService tracks failed attempts, origin blocks and account locks.
// Expiry is evaluated when a record is read; expired rows are left in place.
type LedgerService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       *AuditService
	clock       timex.Clock
	settings    LedgerSettings
	log         logging.Logger
}

func NewLedgerService(db *sql.DB, m repomanager.RepositoryManager, audit *AuditService, clock timex.Clock, settings LedgerSettings, log logging.Logger) *LedgerService {
	return &LedgerService{
		db:          db,
		repomanager: m,
		audit:       audit,
		clock:       clock,
		settings:    settings,
		log:         log.With("module", "ledger"),
	}
}

func (s *LedgerService) Settings() LedgerSettings {
	return s.settings
}

// RecordFailure appends a failed attempt and escalates each track that has
// reached the threshold within the window. An empty identity only feeds the
// origin track.
func (s *LedgerService) RecordFailure(ctx context.Context, origin, identity string) (FailureOutcome, error) {
	var out FailureOutcome
	now := s.clock.Now()
	since := now.Add(-s.settings.Window)

	attempt := &models.FailedAttempt{Origin: origin, AttemptedAt: now}
	if identity != "" {
		attempt.Identity = &identity
	}

	repo := s.repomanager.Attempts(s.db)
	if err := repo.Add(ctx, attempt); err != nil {
		return out, fmt.Errorf("error recording failed attempt: %w", err)
	}

	n, err := repo.CountByOrigin(ctx, origin, since, now)
	if err != nil {
		return out, fmt.Errorf("error counting attempts by origin: %w", err)
	}
	out.OriginAttempts = n
	if n >= s.settings.Threshold {
		if _, err := s.Block(ctx, SystemActorAt(origin), BlockSpec{
			Origin:   origin,
			Reason:   ReasonBruteForce,
			Duration: s.settings.OriginBlock,
		}); err != nil {
			return out, err
		}
		out.OriginBlocked = true
	}

	if identity == "" {
		return out, nil
	}

	n, err = repo.CountByIdentity(ctx, identity, since, now)
	if err != nil {
		return out, fmt.Errorf("error counting attempts by identity: %w", err)
	}
	out.IdentityAttempts = n
	if n >= s.settings.Threshold {
		if _, err := s.Lock(ctx, SystemActorAt(origin), identity, ReasonTooManyFailed, s.settings.AccountLock, n); err != nil {
			return out, err
		}
		out.AccountLocked = true
	}

	return out, nil
}

// IsBlocked reports whether origin has a block in force now.
func (s *LedgerService) IsBlocked(ctx context.Context, origin string) (bool, error) {
	b, err := s.repomanager.Blocks(s.db).Get(ctx, origin)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrLedgerUnavailable, err)
	}
	return b.ActiveAt(s.clock.Now()), nil
}

// IsLocked reports whether identity has a lock in force now.
func (s *LedgerService) IsLocked(ctx context.Context, identity string) (bool, error) {
	l, err := s.repomanager.Locks(s.db).Get(ctx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", common.ErrLedgerUnavailable, err)
	}
	return l.ActiveAt(s.clock.Now()), nil
}

// Block upserts a block for spec.Origin, replacing any previous one.
func (s *LedgerService) Block(ctx context.Context, actor Actor, spec BlockSpec) (*models.BlockedOrigin, error) {
	if spec.Origin == "" {
		return nil, fmt.Errorf("%w: origin is required", common.ErrorValidation)
	}
	if !spec.Permanent && spec.Duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", common.ErrorValidation)
	}

	now := s.clock.Now()
	b := &models.BlockedOrigin{
		Origin:    spec.Origin,
		Permanent: spec.Permanent,
		Reason:    spec.Reason,
		Actor:     actor.Name,
		CreatedAt: now,
	}
	if !spec.Permanent {
		b.BlockedUntil = now.Add(spec.Duration)
	}

	if err := s.repomanager.Blocks(s.db).Upsert(ctx, b); err != nil {
		return nil, fmt.Errorf("error blocking origin: %w", err)
	}

	desc := fmt.Sprintf("origin blocked: %s", spec.Reason)
	if spec.Permanent {
		desc += " (permanent)"
	} else {
		desc += fmt.Sprintf(" (until %s)", b.BlockedUntil.UTC().Format(time.RFC3339))
	}
	s.record(ctx, spec.Origin, actorIdentity(actor), models.EventOriginBlocked, blockSeverity(actor), desc)

	return b, nil
}

// Lock upserts a lock on identity for d, replacing any previous one.
func (s *LedgerService) Lock(ctx context.Context, actor Actor, identity, reason string, d time.Duration, failed int) (*models.AccountLock, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", common.ErrorValidation)
	}
	if d <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", common.ErrorValidation)
	}

	now := s.clock.Now()
	l := &models.AccountLock{
		Identity:       identity,
		LockedUntil:    now.Add(d),
		Reason:         reason,
		FailedAttempts: failed,
		CreatedAt:      now,
	}
	if err := s.repomanager.Locks(s.db).Upsert(ctx, l); err != nil {
		return nil, fmt.Errorf("error locking account: %w", err)
	}

	desc := fmt.Sprintf("account locked by %s: %s (until %s)", actor.Name, reason, l.LockedUntil.UTC().Format(time.RFC3339))
	s.record(ctx, actor.Origin, &identity, models.EventAccountLocked, blockSeverity(actor), desc)

	return l, nil
}

// Unblock removes the block on origin. It returns common.ErrorNotFound when
// there is none.
func (s *LedgerService) Unblock(ctx context.Context, actor Actor, origin string) error {
	if err := s.repomanager.Blocks(s.db).Delete(ctx, origin); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error unblocking origin: %w", err)
	}
	s.record(ctx, origin, actorIdentity(actor), models.EventOriginUnblocked, models.SeverityMedium,
		fmt.Sprintf("origin unblocked by %s", actor.Name))
	return nil
}

// Unlock removes the lock on identity. It returns common.ErrorNotFound when
// there is none.
func (s *LedgerService) Unlock(ctx context.Context, actor Actor, identity string) error {
	if err := s.repomanager.Locks(s.db).Delete(ctx, identity); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("error unlocking account: %w", err)
	}
	s.record(ctx, actor.Origin, &identity, models.EventAccountUnlocked, models.SeverityMedium,
		fmt.Sprintf("account unlocked by %s", actor.Name))
	return nil
}

// ListBlocked returns the blocks in force now.
func (s *LedgerService) ListBlocked(ctx context.Context) ([]*models.BlockedOrigin, error) {
	all, err := s.repomanager.Blocks(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing blocked origins: %w", err)
	}
	now := s.clock.Now()
	active := make([]*models.BlockedOrigin, 0, len(all))
	for _, b := range all {
		if b.ActiveAt(now) {
			active = append(active, b)
		}
	}
	return active, nil
}

// ListLocked returns the locks in force now.
func (s *LedgerService) ListLocked(ctx context.Context) ([]*models.AccountLock, error) {
	all, err := s.repomanager.Locks(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing locked accounts: %w", err)
	}
	now := s.clock.Now()
	active := make([]*models.AccountLock, 0, len(all))
	for _, l := range all {
		if l.ActiveAt(now) {
			active = append(active, l)
		}
	}
	return active, nil
}

// Reset wipes attempts, blocks, locks and events. On a database the wipe is
// a single transaction. A ledger_reset event is recorded afterwards.
func (s *LedgerService) Reset(ctx context.Context, actor Actor) error {
	wipe := func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Attempts(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.repomanager.Blocks(tx).DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.repomanager.Locks(tx).DeleteAll(ctx); err != nil {
			return err
		}
		return s.repomanager.Events(tx).DeleteAll(ctx)
	}

	var err error
	if s.db != nil {
		err = dbx.WithTx(ctx, s.db, nil, wipe)
	} else {
		err = wipe(ctx, nil)
	}
	if err != nil {
		return fmt.Errorf("error resetting ledger: %w", err)
	}

	s.log.Warn(ctx, "protection ledger reset", "actor", actor.Name)
	s.record(ctx, actor.Origin, actorIdentity(actor), models.EventLedgerReset, models.SeverityHigh,
		fmt.Sprintf("ledger reset by %s", actor.Name))
	return nil
}

// record writes an audit event. Failures are logged, not returned.
func (s *LedgerService) record(ctx context.Context, origin string, identity *string, kind models.EventKind, sev models.Severity, desc string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, &models.SecurityEvent{
		Origin:      origin,
		Identity:    identity,
		Kind:        kind,
		Severity:    sev,
		Description: desc,
	})
	if err != nil {
		s.log.Error(ctx, "failed to record security event", "kind", kind, "error", err)
	}
}

func actorIdentity(a Actor) *string {
	if a.Name == "" || a.Name == common.SystemActor {
		return nil
	}
	name := a.Name
	return &name
}

func blockSeverity(a Actor) models.Severity {
	if a.Name == common.SystemActor {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}
