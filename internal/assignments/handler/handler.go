package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leaddesk_backend/internal/assignments/repository"
	"leaddesk_backend/internal/assignments/service"
	"leaddesk_backend/internal/assignments/transport"
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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/mine", h.ListMine)
	rg.GET("/history", h.History)
	rg.POST("/:id/accept", h.Accept)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.AdminHistory)
}

// Accept claims an assignment for the authenticated broker. A 409 means the
// row was no longer claimable (already accepted, expired or withdrawn).
func (h *Handler) Accept(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)

	accepted, err := h.svc.Accept(c.Request.Context(), id, identity.BrokerID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.AcceptResponse{Assignment: *accepted})
}

func (h *Handler) ListMine(c *gin.Context) {
	var query transport.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)

	details, err := h.svc.ListMine(c.Request.Context(), identity.BrokerID(), statusFilter(query.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewAssignmentViews(details, time.Now().UTC()))
}

func (h *Handler) History(c *gin.Context) {
	var query transport.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)

	filter := repository.HistoryFilter{
		Status:  statusFilter(query.Status),
		Search:  query.Search,
		Page:    query.Page,
		PerPage: query.PerPage,
	}
	details, total, err := h.svc.History(c.Request.Context(), identity.BrokerID(), filter)
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
	httpkit.OK(c, transport.HistoryResponse{
		Items:   transport.NewAssignmentViews(details, time.Now().UTC()),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

// AdminHistory is the audit view: assignments across every broker, with the
// assignee joined in, so a manager can follow the path a lead took.
func (h *Handler) AdminHistory(c *gin.Context) {
	var query transport.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	filter := repository.HistoryFilter{
		Status:  statusFilter(query.Status),
		Search:  query.Search,
		Page:    query.Page,
		PerPage: query.PerPage,
	}
	details, total, err := h.svc.AdminHistory(c.Request.Context(), filter)
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
	httpkit.OK(c, transport.AdminHistoryResponse{
		Items:   transport.NewAdminAssignmentViews(details, time.Now().UTC()),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	})
}

func statusFilter(raw string) *repository.Status {
	if raw == "" {
		return nil
	}
	s := repository.Status(raw)
	return &s
}
