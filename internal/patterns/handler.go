package patterns

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"feedback-translator/internal/shared/server/respond"
)

// Handler exposes pattern extraction over HTTP.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/patterns/extract", h.extract)
}

type extractRequest struct {
	Feedback string `json:"feedback"`
}

func (h *Handler) extract(c *gin.Context) {
	var req extractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	extraction, err := h.Svc.Extract(c.Request.Context(), req.Feedback)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	respond.JSON(c, http.StatusOK, extraction)
}
