// Package assignments provides the lead routing bounded context: fan-out of
// prospects to brokers, accept, expiration and escalation.
package assignments

import (
	"leaddesk_backend/internal/assignments/handler"
	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/internal/assignments/service"
	"leaddesk_backend/internal/brokers"
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/params"
	"leaddesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *service.Service
}

// NewModule creates and initializes the assignments module. The scheduler is
// optional; without it the periodic sweep is the only expiration path.
func NewModule(pool *pgxpool.Pool, selector brokers.Selector, paramSource params.Source, eventBus events.Bus, scheduler service.DeadlineScheduler, log *logger.Logger) *Module {
	repo := repository.New(pool)
	engine := service.New(repo, repo, selector, paramSource, eventBus, scheduler, log)

	return &Module{
		handler: handler.New(engine),
		engine:  engine,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignments"
}

// Engine returns the assignment engine for the prospects module and the
// sweeper, which drive it outside the HTTP surface.
func (m *Module) Engine() *service.Service {
	return m.engine
}

// RegisterRoutes mounts assignment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/assignments")
	m.handler.RegisterRoutes(group)
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/assignments"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
