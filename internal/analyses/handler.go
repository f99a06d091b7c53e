package analyses

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"feedback-translator/internal/shared/server/middleware"
	"feedback-translator/internal/shared/server/respond"
)

// failedAnalysisMessage is the only failure detail clients ever see.
const failedAnalysisMessage = "processing failed, please retry"

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.createAnalysis)
	rg.GET("/analyses", h.listAnalyses)
	rg.GET("/analyses/:id", h.getAnalysis)
	rg.GET("/analyses/:id/status", h.getStatus)
	rg.POST("/analyses/:id/rating", h.rateAnalysis)
	rg.DELETE("/analyses/:id", h.deleteAnalysis)
}

type createAnalysisRequest struct {
	FileName string `json:"fileName"`
	Content  string `json:"content"`
	Feedback string `json:"feedback"`
}

func (h *Handler) createAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req createAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	analysis, err := h.Svc.Create(ctx, userID, CreateInput{
		FileName:   req.FileName,
		SourceText: req.Content,
		Feedback:   req.Feedback,
	})
	if err != nil {
		var inputErr *InvalidInputError
		switch {
		case errors.As(err, &inputErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", inputErr.Reason, []map[string]string{
				{"field": inputErr.Field, "issue": inputErr.Reason},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create analysis", nil)
		}
		return
	}

	c.Set("analysisId", analysis.ID)
	respond.Accepted(c, gin.H{
		"analysisId": analysis.ID,
		"status":     analysis.Status,
	})
}

func (h *Handler) getStatus(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	if !h.limiter.Allow(userID, analysisID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}

	view, err := h.Svc.GetStatus(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch status", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, view)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	analysis, err := h.Svc.Get(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	resp := gin.H{
		"id":        analysis.ID,
		"fileName":  analysis.FileName,
		"fileSize":  analysis.FileSize,
		"feedback":  analysis.Feedback,
		"status":    analysis.Status,
		"createdAt": analysis.CreatedAt,
		"updatedAt": analysis.UpdatedAt,
	}
	switch analysis.Status {
	case StatusComplete:
		changes, err := DecodeSuggestions(analysis)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to decode suggestions", nil)
			return
		}
		resp["interpretation"] = analysis.Interpretation
		resp["suggestions"] = changes
		resp["confidence"] = analysis.Confidence
		resp["reasoning"] = analysis.Reasoning
		if analysis.UserRating != nil {
			resp["userRating"] = *analysis.UserRating
		}
	case StatusFailed:
		// Failure causes stay server-side; clients only see a retry hint.
		resp["message"] = failedAnalysisMessage
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, analysis := range items {
		entry := gin.H{
			"id":        analysis.ID,
			"fileName":  analysis.FileName,
			"feedback":  analysis.Feedback,
			"status":    analysis.Status,
			"createdAt": analysis.CreatedAt,
		}
		if analysis.Status == StatusComplete && analysis.Confidence != nil {
			entry["confidence"] = *analysis.Confidence
		}
		resp = append(resp, entry)
	}

	respond.JSON(c, http.StatusOK, gin.H{"analyses": resp})
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h *Handler) rateAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	err := h.Svc.Rate(c.Request.Context(), userID, analysisID, req.Rating)
	if err != nil {
		var inputErr *InvalidInputError
		switch {
		case errors.As(err, &inputErr):
			respond.Error(c, http.StatusBadRequest, "validation_error", inputErr.Reason, []map[string]string{
				{"field": inputErr.Field, "issue": inputErr.Reason},
			})
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		case errors.Is(err, ErrNotRatable):
			respond.Error(c, http.StatusConflict, "invalid_state", "only completed analyses can be rated", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to rate analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")
	if analysisID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "analysis id is required", nil)
		return
	}

	err := h.Svc.Delete(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete analysis", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"deleted": true})
}
