package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/response"
)

type submissionService interface {
	Submit(ctx context.Context, req service.SubmitFeedbackRequest) (*service.SubmissionResult, error)
}

// SubmissionHandler accepts student feedback.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs a SubmissionHandler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Submit godoc
// @Summary Submit feedback
// @Description Spends a single-use token and records anonymous ratings. Unparseable JSON is rejected before the token is examined.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body service.SubmitFeedbackRequest true "Token and ratings"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /feedback [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req service.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := bindError(err, "malformed feedback payload")
		response.Rejected(c, service.SubmissionResult{Reason: service.ReasonValidationError, Fields: appErr.Fields}, appErr)
		return
	}

	result, err := h.submissions.Submit(c.Request.Context(), req)
	if err != nil {
		if result != nil {
			response.Rejected(c, result, err)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
