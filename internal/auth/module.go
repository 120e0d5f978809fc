package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"leaddesk_backend/internal/config"
	apphttp "leaddesk_backend/internal/http"
	"leaddesk_backend/platform/logger"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, cfg *config.Config, log *logger.Logger) *Module {
	svc := NewService(NewRepository(pool), cfg.JWTSecret, cfg.JWTTTL, log)
	return &Module{handler: NewHandler(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts the login endpoint on the public surface.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/auth"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
