package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/feedback-api/pkg/config"
	"github.com/noah-isme/feedback-api/pkg/response"
)

// SurveyResponse describes the form a student fills in.
type SurveyResponse struct {
	Teachers       []string              `json:"teachers"`
	Subjects       []string              `json:"subjects"`
	Combos         []config.Combo        `json:"combos"`
	Questions      []string              `json:"questions"`
	AcademicPeriod config.AcademicPeriod `json:"academic_period"`
	RatingMin      int                   `json:"rating_min"`
	RatingMax      int                   `json:"rating_max"`
}

// SurveyHandler serves the survey catalog.
type SurveyHandler struct {
	catalog *config.Catalog
}

// NewSurveyHandler constructs a SurveyHandler.
func NewSurveyHandler(catalog *config.Catalog) *SurveyHandler {
	return &SurveyHandler{catalog: catalog}
}

// Get godoc
// @Summary Survey definition
// @Description Teachers, subjects, allowed pairs, the ten questions and the academic period
// @Tags Survey
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /survey [get]
func (h *SurveyHandler) Get(c *gin.Context) {
	response.JSON(c, http.StatusOK, SurveyResponse{
		Teachers:       h.catalog.Teachers(),
		Subjects:       h.catalog.Subjects(),
		Combos:         h.catalog.Combos(),
		Questions:      h.catalog.Questions(),
		AcademicPeriod: h.catalog.Period(),
		RatingMin:      1,
		RatingMax:      10,
	}, nil)
}
