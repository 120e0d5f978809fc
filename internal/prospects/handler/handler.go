package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leaddesk_backend/internal/prospects/service"
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

// RegisterPublicRoutes mounts the unauthenticated intake endpoint.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
}

// RegisterProtectedRoutes mounts broker-facing prospect reads.
func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
}

type createRequest struct {
	PropertyID        uuid.UUID `json:"propertyId" validate:"required"`
	ClientName        string    `json:"clientName" validate:"required,max=160"`
	ClientEmail       string    `json:"clientEmail" validate:"omitempty,email,max=254"`
	ClientPhone       string    `json:"clientPhone" validate:"required,max=32"`
	ContactPreference string    `json:"contactPreference" validate:"required,oneof=phone email whatsapp"`
	Message           string    `json:"message" validate:"omitempty,max=2000"`
}

func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := validator.Validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}

	prospect, err := h.svc.Create(c.Request.Context(), service.CreateInput{
		PropertyID:        req.PropertyID,
		ClientName:        req.ClientName,
		ClientEmail:       req.ClientEmail,
		ClientPhone:       req.ClientPhone,
		ContactPreference: req.ContactPreference,
		Message:           req.Message,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, prospect)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	prospect, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, prospect)
}
