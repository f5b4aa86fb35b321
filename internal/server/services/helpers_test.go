package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/refinery/internal/dbx"
	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/blocks"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/users"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)

var errBoom = errors.New("boom")

func testSettings() LedgerSettings {
	return LedgerSettings{
		Threshold:   3,
		Window:      30 * time.Second,
		OriginBlock: 15 * time.Minute,
		AccountLock: 10 * time.Minute,
		AttackBlock: 5 * time.Minute,
	}
}

type env struct {
	rm     *repomanager.MemoryRepositoryManager
	clock  *timex.ManualClock
	audit  *AuditService
	ledger *LedgerService
	users  *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	clock := timex.NewManualClock(t0)
	log := logging.Discard()
	audit := NewAuditService(nil, rm, clock, log)
	return &env{
		rm:     rm,
		clock:  clock,
		audit:  audit,
		ledger: NewLedgerService(nil, rm, audit, clock, testSettings(), log),
		users:  NewUserService(nil, rm, log),
	}
}

func (e *env) events(t *testing.T, kind models.EventKind) []*models.SecurityEvent {
	t.Helper()
	list, _, err := e.audit.List(context.Background(), models.EventFilter{Kind: kind, Limit: MaxEventLimit})
	require.NoError(t, err)
	return list
}

// brokenManager serves failing blocks and users repositories on top of the
// in-memory ones.
type brokenManager struct {
	*repomanager.MemoryRepositoryManager
}

func (brokenManager) Blocks(dbx.DBTX) blocks.Repository { return brokenBlocks{} }
func (brokenManager) Users(dbx.DBTX) users.Repository   { return brokenUsers{} }

type brokenBlocks struct{}

func (brokenBlocks) Upsert(context.Context, *models.BlockedOrigin) error { return errBoom }
func (brokenBlocks) Get(context.Context, string) (*models.BlockedOrigin, error) {
	return nil, errBoom
}
func (brokenBlocks) Delete(context.Context, string) error { return errBoom }
func (brokenBlocks) List(context.Context) ([]*models.BlockedOrigin, error) {
	return nil, errBoom
}
func (brokenBlocks) DeleteAll(context.Context) error { return errBoom }

type brokenUsers struct{}

func (brokenUsers) Create(context.Context, *models.User) (*models.User, error) { return nil, errBoom }
func (brokenUsers) GetUserByLogin(context.Context, string) (*models.User, error) {
	return nil, errBoom
}
