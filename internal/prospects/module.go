// Package prospects provides the prospect intake bounded context: the public
// endpoint where clients register interest in a property.
package prospects

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/prospects/handler"
	"leaddesk_backend/internal/prospects/repository"
	"leaddesk_backend/internal/prospects/service"
	"leaddesk_backend/platform/logger"
)

// Module is the prospects bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates the prospects module. The router func is the assignment
// engine's fan-out, passed as a closure by the composition root.
func NewModule(pool *pgxpool.Pool, router service.RouterFunc, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, router, eventBus, log)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "prospects"
}

// RegisterRoutes mounts the public intake endpoint (rate limited) and the
// protected prospect reads.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/prospects")
	if ctx.IntakeRateLimiter != nil {
		public.Use(ctx.IntakeRateLimiter.RateLimit())
	}
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterProtectedRoutes(ctx.Protected.Group("/prospects"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
