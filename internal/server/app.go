// Package server wires the refinery security core together: storage, the
// protection ledger, the authorization pipeline and both transports.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/abac"
	"github.com/dmitrijs2005/refinery/internal/server/auth"
	"github.com/dmitrijs2005/refinery/internal/server/config"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/httpapi"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/dmitrijs2005/refinery/internal/server/threat"
	"github.com/dmitrijs2005/refinery/internal/timex"

	gs "github.com/dmitrijs2005/refinery/internal/server/grpc"
)

const defaultSecretKey = "secretKey"

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	userService *services.UserService
	pipeline    *guard.Pipeline
	httpServer  *httpapi.Server
	grpcServer  *gs.GRPCServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	return newApp(ctx, c, os.Stdout)
}

func newApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(logOut, c.LogLevel)
	clock := timex.SystemClock{}

	app := &App{config: c, logger: logger}

	var rm repomanager.RepositoryManager
	if c.DatabaseDSN != "" {
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		rm = repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations error: %w", err)
		}
		app.db = db
	} else {
		logger.Warn(ctx, "no database configured, using in-memory store")
		rm = repomanager.NewMemoryRepositoryManager()
	}

	if c.SecretKey == defaultSecretKey && !c.DevMode {
		logger.Warn(ctx, "default secret key in use outside dev mode")
	}

	loc, err := c.Location()
	if err != nil {
		return nil, fmt.Errorf("time zone: %w", err)
	}
	hours, err := abac.NewWorkingHours(c.WorkingHoursStart, c.WorkingHoursEnd, c.WorkingHoursMessage, loc)
	if err != nil {
		return nil, fmt.Errorf("working hours: %w", err)
	}

	catalog := rbac.DefaultCatalog()
	policies := abac.NewEvaluator()
	for _, role := range c.WorkingHoursRoles {
		if !catalog.Known(role) {
			logger.Warn(ctx, "working hours attached to unknown role", "role", role)
		}
		policies.Attach(role, hours)
	}

	audit := services.NewAuditService(app.db, rm, clock, logger)
	ledger := services.NewLedgerService(app.db, rm, audit, clock, services.LedgerSettingsFromConfig(c), logger)
	app.userService = services.NewUserService(app.db, rm, logger)

	app.pipeline = guard.New(guard.Deps{
		Scanner:  threat.NewScanner(),
		Ledger:   ledger,
		Users:    app.userService,
		Tokens:   auth.NewTokenService([]byte(c.SecretKey), clock),
		Catalog:  catalog,
		Policies: policies,
		Audit:    audit,
		Clock:    clock,
		FailOpen: c.FailOpen,
		Log:      logger,
	})

	if _, err := app.userService.EnsureBootstrapAdmin(ctx, c.AdminUsername, c.AdminPassword); err != nil {
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	var archive *services.ArchiveService
	if c.S3Bucket != "" {
		client, err := services.NewS3Client(ctx, c)
		if err != nil {
			logger.Warn(ctx, "event archive disabled", "error", err)
		} else {
			archive = services.NewArchiveService(audit, client, c.S3Bucket, clock, logger)
		}
	}

	app.httpServer = httpapi.NewServer(httpapi.Options{
		Address:         c.EndpointAddrHTTP,
		Pipeline:        app.pipeline,
		Catalog:         catalog,
		Ledger:          ledger,
		Audit:           audit,
		Archive:         archive,
		DevMode:         c.DevMode,
		ThrottleRate:    c.ThrottleRate,
		ThrottleBurst:   c.ThrottleBurst,
		ShutdownTimeout: c.ShutdownTimeout,
		Log:             logger,
	})
	app.grpcServer = gs.NewGRPCServer(c.EndpointAddrGRPC, logger, app.pipeline, ledger, clock)

	return app, nil
}

// HTTP exposes the HTTP server so collaborators can mount guarded routes
// before Run.
func (app *App) HTTP() *httpapi.Server {
	return app.httpServer
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", err)
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.httpServer.Run(ctx); err != nil {
		app.logger.Error(ctx, "HTTP server failed", "error", err)
		cancelFunc()
	}
}

// Run serves both transports until ctx is cancelled, a signal arrives or
// either server fails.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
