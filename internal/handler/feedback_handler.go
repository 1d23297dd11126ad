package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/pkg/response"
)

type feedbackLister interface {
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.FeedbackEntry, *models.Pagination, error)
}

// FeedbackHandler lets the administrator browse stored feedback.
type FeedbackHandler struct {
	feedback feedbackLister
}

// NewFeedbackHandler constructs a FeedbackHandler.
func NewFeedbackHandler(feedback feedbackLister) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// List godoc
// @Summary List feedback
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param teacher query string false "Teacher name"
// @Param subject query string false "Subject name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/feedback [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	filter := models.FeedbackFilter{
		Teacher: strings.TrimSpace(c.Query("teacher")),
		Subject: strings.TrimSpace(c.Query("subject")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.feedback.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
