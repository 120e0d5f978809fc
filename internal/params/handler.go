package params

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leaddesk_backend/platform/httpkit"
	"leaddesk_backend/platform/validator"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.Get)
	rg.PUT("", h.Update)
}

type updateRequest struct {
	SLAMinutes  int `json:"slaMinutes" validate:"required,min=1,max=1440"`
	// Zero fan-out is allowed and pauses routing.
	FanoutCount int `json:"fanoutCount" validate:"min=0,max=20"`
}

func (h *Handler) Get(c *gin.Context) {
	current, err := h.repo.Current(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, current)
}

// Update changes the routing window and fan-out width. Live assignments keep
// the deadline they were created with; the new values apply from the next
// fan-out on.
func (h *Handler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	updated, err := h.repo.Update(c.Request.Context(), req.SLAMinutes, req.FanoutCount)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, updated)
}
