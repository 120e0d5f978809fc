package params

import (
	apphttp "leaddesk_backend/internal/http"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes the SLA parameters to admins implementing http.Module.
type Module struct {
	repo    *Repository
	handler *Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := New(pool)
	return &Module{repo: repo, handler: NewHandler(repo)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "params"
}

// Source returns the parameter source consumed by the assignment engine.
func (m *Module) Source() Source {
	return m.repo
}

// RegisterRoutes mounts parameter routes for admins only.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/params"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
