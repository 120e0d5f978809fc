package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leaddesk_backend/internal/scoring/repository"
	"leaddesk_backend/internal/scoring/service"
	"leaddesk_backend/platform/httpkit"
	"leaddesk_backend/platform/validator"
)

type Handler struct {
	svc *service.Service
}

const msgInvalidRequest = "invalid request"

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterScoreRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.MyScore)
	rg.POST("/visits", h.RecordVisit)
	rg.POST("/sales", h.RecordSale)
}

func (h *Handler) RegisterLeaderboardRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Leaderboard)
}

type recordRequest struct {
	ProspectID uuid.UUID `json:"prospectId" validate:"required"`
}

type leaderboardQuery struct {
	Search  string `form:"search" validate:"omitempty,max=120"`
	Page    int    `form:"page" validate:"omitempty,min=1"`
	PerPage int    `form:"perPage" validate:"omitempty,min=1,max=100"`
}

type leaderboardResponse struct {
	Items   []repository.LeaderboardEntry `json:"items"`
	Total   int                           `json:"total"`
	Page    int                           `json:"page"`
	PerPage int                           `json:"perPage"`
}

func (h *Handler) MyScore(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)

	score, err := h.svc.MyScore(c.Request.Context(), identity.BrokerID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, score)
}

func (h *Handler) RecordVisit(c *gin.Context) {
	h.record(c, h.svc.RecordVisit)
}

func (h *Handler) RecordSale(c *gin.Context) {
	h.record(c, h.svc.RecordSale)
}

func (h *Handler) record(c *gin.Context, fn func(ctx context.Context, brokerID, prospectID uuid.UUID) error) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)

	if err := fn(c.Request.Context(), identity.BrokerID(), req.ProspectID); httpkit.HandleError(c, err) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	var query leaderboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	filter := repository.LeaderboardFilter{Search: query.Search, Page: query.Page, PerPage: query.PerPage}
	entries, total, err := h.svc.Leaderboard(c.Request.Context(), filter)
	if httpkit.HandleError(c, err) {
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	httpkit.OK(c, leaderboardResponse{Items: entries, Total: total, Page: page, PerPage: perPage})
}
