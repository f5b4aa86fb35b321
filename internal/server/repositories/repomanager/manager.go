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

// RepositoryManager vends repositories bound to a DBTX so that services can
// run several of them inside one transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Attempts(db dbx.DBTX) attempts.Repository
	Blocks(db dbx.DBTX) blocks.Repository
	Locks(db dbx.DBTX) locks.Repository
	Events(db dbx.DBTX) events.Repository
}
