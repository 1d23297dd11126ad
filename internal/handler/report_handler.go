package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/internal/middleware"
	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/response"
)

type reportService interface {
	Summary(ctx context.Context) (*models.FeedbackSummary, bool, error)
	Export(ctx context.Context, req service.ExportRequest) (*service.ExportFile, error)
}

// ReportHandler serves the admin dashboard summary and exports.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Summary godoc
// @Summary Feedback summary
// @Description Token counts, per-question averages, per-teacher counts and per teacher/subject averages
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /admin/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	summary, hit, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export feedback
// @Description Downloads feedback rows as xlsx (default), csv or pdf
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param scope query string false "all, teacher or subject"
// @Param name query string false "Teacher or subject name"
// @Param format query string false "xlsx, csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	file, err := h.reports.Export(c.Request.Context(), service.ExportRequest{
		Scope:  models.ExportScope(c.DefaultQuery("scope", string(models.ExportScopeAll))),
		Name:   c.Query("name"),
		Format: c.Query("format"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}
