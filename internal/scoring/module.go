// Package scoring provides the broker gamification bounded context: XP,
// levels, performance counters and the leaderboard.
package scoring

import (
	"leaddesk_backend/internal/events"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/internal/scoring/handler"
	"leaddesk_backend/internal/scoring/repository"
	"leaddesk_backend/internal/scoring/service"
	"leaddesk_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	svc     *service.Service
}

// NewModule creates the scoring module and subscribes it to the assignment
// lifecycle events that drive XP.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	svc.Subscribe(eventBus)

	return &Module{
		handler: handler.New(svc),
		svc:     svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scoring"
}

// RegisterRoutes mounts scoring routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterScoreRoutes(ctx.Protected.Group("/scores"))
	m.handler.RegisterLeaderboardRoutes(ctx.Protected.Group("/leaderboard"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
