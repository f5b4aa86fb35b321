package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/refinery/internal/dbx"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/attempts"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/blocks"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/events"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/locks"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps one in-process instance of every repository
// and ignores the DBTX argument. State is lost on restart.
type MemoryRepositoryManager struct {
	users    *users.MemoryRepository
	attempts *attempts.MemoryRepository
	blocks   *blocks.MemoryRepository
	locks    *locks.MemoryRepository
	events   *events.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		attempts: attempts.NewMemoryRepository(),
		blocks:   blocks.NewMemoryRepository(),
		locks:    locks.NewMemoryRepository(),
		events:   events.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository       { return m.users }
func (m *MemoryRepositoryManager) Attempts(dbx.DBTX) attempts.Repository { return m.attempts }
func (m *MemoryRepositoryManager) Blocks(dbx.DBTX) blocks.Repository     { return m.blocks }
func (m *MemoryRepositoryManager) Locks(dbx.DBTX) locks.Repository       { return m.locks }
func (m *MemoryRepositoryManager) Events(dbx.DBTX) events.Repository     { return m.events }
