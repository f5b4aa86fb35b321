// Package httpapi exposes the authorization pipeline and the security
// administration endpoints over HTTP. Collaborating handlers are mounted
// through Server.Handle and only run once the pipeline allows the request.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/refinery/internal/logging"
	"github.com/dmitrijs2005/refinery/internal/server/guard"
	"github.com/dmitrijs2005/refinery/internal/server/rbac"
	"github.com/dmitrijs2005/refinery/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

var errBodyTooLarge = errors.New("request body too large")

const (
	throttleCleanupInterval = time.Minute
	throttleMaxIdle         = 10 * time.Minute
)

type Options struct {
	Address         string
	Pipeline        *guard.Pipeline
	Catalog         *rbac.Catalog
	Ledger          *services.LedgerService
	Audit           *services.AuditService
	Archive         *services.ArchiveService
	DevMode         bool
	ThrottleRate    float64
	ThrottleBurst   int
	ShutdownTimeout time.Duration
	Log             logging.Logger
}

type Server struct {
	address         string
	router          chi.Router
	pipeline        *guard.Pipeline
	catalog         *rbac.Catalog
	ledger          *services.LedgerService
	audit           *services.AuditService
	archive         *services.ArchiveService
	devMode         bool
	throttle        *throttle
	shutdownTimeout time.Duration
	log             logging.Logger
}

func NewServer(o Options) *Server {
	s := &Server{
		address:         o.Address,
		router:          chi.NewRouter(),
		pipeline:        o.Pipeline,
		catalog:         o.Catalog,
		ledger:          o.Ledger,
		audit:           o.Audit,
		archive:         o.Archive,
		devMode:         o.DevMode,
		shutdownTimeout: o.ShutdownTimeout,
		log:             o.Log.With("module", "http_server"),
	}
	if o.ThrottleRate > 0 {
		s.throttle = newThrottle(o.ThrottleRate, o.ThrottleBurst)
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = 5 * time.Second
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.throttleMiddleware)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Get("/auth/me", s.guarded("", s.handleMe))
		r.Get("/access/check", s.guarded("", s.handleAccessCheck))

		r.Route("/security", func(r chi.Router) {
			r.Get("/blocked-origins", s.guarded(rbac.PermSecurityRead, s.handleListBlocked))
			r.Post("/blocked-origins", s.guarded(rbac.PermSecurityManage, s.handleBlock))
			r.Delete("/blocked-origins/{origin}", s.guarded(rbac.PermSecurityManage, s.handleUnblock))

			r.Get("/locked-accounts", s.guarded(rbac.PermSecurityRead, s.handleListLocked))
			r.Post("/locked-accounts", s.guarded(rbac.PermSecurityManage, s.handleLock))
			r.Delete("/locked-accounts/{username}", s.guarded(rbac.PermSecurityManage, s.handleUnlock))

			r.Get("/events", s.guarded(rbac.PermSecurityRead, s.handleListEvents))
			r.Get("/events/stats", s.guarded(rbac.PermSecurityRead, s.handleEventStats))
			r.Post("/events/archive", s.guarded(rbac.PermSecurityManage, s.handleArchive))

			if s.devMode {
				r.Post("/reset", s.guarded(rbac.PermSecurityManage, s.handleReset))
			}
		})
	})
}

// Handle mounts a collaborator handler behind the pipeline. The handler runs
// only when the caller holds permission; the verified claims are available
// through guard.ClaimsFrom.
func (s *Server) Handle(method, pattern, permission string, h http.Handler) {
	s.router.Method(method, pattern, s.guarded(permission, h.ServeHTTP))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// guarded runs the pipeline before h.
func (s *Server) guarded(permission string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := payloadOf(r)
		if err != nil {
			if errors.Is(err, errBodyTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, "unreadable request body")
			return
		}

		claims, err := s.pipeline.Authorize(r.Context(), guard.Request{
			Origin:     originOf(r),
			Token:      tokenOf(r),
			Permission: permission,
			Payload:    payload,
		})
		if err != nil {
			writeDenial(w, err)
			return
		}

		h(w, r.WithContext(guard.WithClaims(r.Context(), claims)))
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if s.throttle != nil {
		go s.throttle.run(ctx, throttleCleanupInterval, throttleMaxIdle)
	}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error(shutdownCtx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
