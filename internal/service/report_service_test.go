package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/repository"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

type aggregatesMock struct {
	averages *repository.QuestionAverages
	counts   map[string]int
	groups   []repository.GroupAverages
	err      error
	calls    int
}

func (m *aggregatesMock) QuestionAverages(ctx context.Context) (*repository.QuestionAverages, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.averages, nil
}

func (m *aggregatesMock) TeacherCounts(ctx context.Context) (map[string]int, error) {
	return m.counts, nil
}

func (m *aggregatesMock) GroupAverages(ctx context.Context) ([]repository.GroupAverages, error) {
	return m.groups, nil
}

type statsMock struct{ stats models.TokenStats }

func (m *statsMock) Stats(ctx context.Context) (*models.TokenStats, error) {
	s := m.stats
	return &s, nil
}

type memoryCache struct {
	values      map[string]models.FeedbackSummary
	invalidated []string
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.FeedbackSummary)) = v
	return true, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.values == nil {
		c.values = make(map[string]models.FeedbackSummary)
	}
	c.values[key] = *(value.(*models.FeedbackSummary))
	return nil
}

func (c *memoryCache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.values, key)
	}
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

func avgs(first float64) []float64 {
	return []float64{first, 7, 7, 7, 7, 7, 7, 7, 7, 7}
}

func newReportService(t *testing.T, agg *aggregatesMock, entries []models.FeedbackEntry, cache summaryCache) *ReportService {
	t.Helper()
	feedback := NewFeedbackService(&feedbackRepoMock{entries: entries}, testCatalog(t), nil, nil, 0)
	tokens := &statsMock{stats: models.TokenStats{Total: 2, Used: 1, Unused: 1}}
	svc := NewReportService(tokens, agg, feedback, testCatalog(t), cache, nil, ReportConfig{})
	svc.now = func() time.Time { return time.Date(2024, 9, 1, 10, 30, 0, 0, time.UTC) }
	return svc
}

func TestReportSummaryAveragesAndOrdering(t *testing.T) {
	agg := &aggregatesMock{
		averages: &repository.QuestionAverages{Count: 1, Averages: avgs(8)},
		counts:   map[string]int{"Dr. Sharma": 1},
		groups: []repository.GroupAverages{
			{Teacher: "Dr. Patel", Subject: "Chemistry", Count: 2, Averages: avgs(5)},
			{Teacher: "Dr. Sharma", Subject: "Mathematics", Count: 1, Averages: []float64{8, 9, 9, 9, 9, 9, 9, 9, 9, 6.666666}},
		},
	}
	svc := newReportService(t, agg, nil, nil)

	summary, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 8.0, summary.PerQuestionAverage[0])
	assert.Equal(t, 1, summary.FeedbackCount)
	assert.Equal(t, 2, summary.TotalTokens)
	assert.Equal(t, 1, summary.UnusedTokens)
	assert.Equal(t, map[string]int{"Dr. Sharma": 1, "Prof. Gupta": 0, "Dr. Patel": 0}, summary.PerTeacherCount)
	assert.Len(t, summary.Questions, models.RatingCount)

	require.Len(t, summary.TeacherSubjects, 2)
	assert.Equal(t, "Dr. Sharma", summary.TeacherSubjects[0].Teacher)
	assert.Equal(t, 6.67, summary.TeacherSubjects[0].Averages[9])
	assert.Equal(t, 8.67, summary.TeacherSubjects[0].OverallAverage)
}

func TestReportSummaryUsesCache(t *testing.T) {
	agg := &aggregatesMock{averages: &repository.QuestionAverages{Averages: make([]float64, models.RatingCount)}}
	cache := &memoryCache{}
	svc := newReportService(t, agg, nil, cache)

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, agg.calls)

	svc.InvalidateSummary(context.Background())
	assert.Equal(t, []string{summaryCacheKey}, cache.invalidated)

	_, hit, err = svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, agg.calls)
}

func TestReportSummaryWrapsFailures(t *testing.T) {
	svc := newReportService(t, &aggregatesMock{err: errors.New("db down")}, nil, nil)
	_, _, err := svc.Summary(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
}

func TestReportExportHeaderOnlyCSV(t *testing.T) {
	svc := newReportService(t, &aggregatesMock{}, nil, nil)

	file, err := svc.Export(context.Background(), ExportRequest{Scope: models.ExportScopeAll, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "feedback_all_20240901_103000.csv", file.Filename)
	assert.Equal(t, 0, file.Rows)

	records, err := csv.NewReader(bytes.NewReader(file.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ExportHeaders(), records[0])
	assert.Equal(t, []string{"Teacher", "Subject", "Q1", "Q2", "Q3", "Q4", "Q5", "Q6", "Q7", "Q8", "Q9", "Q10", "Comment", "Submitted At"}, records[0])
}

func TestReportExportTeacherRows(t *testing.T) {
	entries := []models.FeedbackEntry{{
		Teacher: "Dr. Sharma", Subject: "Mathematics", Ratings: ratings(8), Comment: strPtr("clear"),
		SubmittedAt: time.Date(2024, 8, 30, 9, 0, 0, 0, time.UTC),
	}}
	svc := newReportService(t, &aggregatesMock{}, entries, nil)

	file, err := svc.Export(context.Background(), ExportRequest{Scope: models.ExportScopeTeacher, Name: "Dr. Sharma", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "feedback_teacher_Dr_Sharma_20240901_103000.csv", file.Filename)

	records, err := csv.NewReader(bytes.NewReader(file.Payload)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Dr. Sharma", "Mathematics", "8", "7", "7", "7", "7", "7", "7", "7", "7", "7", "clear", "2024-08-30 09:00:00"}, records[1])
}

func TestReportExportDefaultsToXLSX(t *testing.T) {
	svc := newReportService(t, &aggregatesMock{}, nil, nil)
	file, err := svc.Export(context.Background(), ExportRequest{})
	require.NoError(t, err)
	assert.Equal(t, "feedback_all_20240901_103000.xlsx", file.Filename)
	assert.Contains(t, file.ContentType, "spreadsheetml")
	assert.NotEmpty(t, file.Payload)
}

func TestReportExportXLSXKeepsCommentsAndNumericRatings(t *testing.T) {
	entries := []models.FeedbackEntry{
		{Teacher: "Dr. Sharma", Subject: "Mathematics", Ratings: ratings(8), Comment: strPtr("007"), SubmittedAt: time.Date(2024, 8, 30, 9, 0, 0, 0, time.UTC)},
		{Teacher: "Dr. Sharma", Subject: "Mathematics", Ratings: ratings(9), Comment: strPtr("+5"), SubmittedAt: time.Date(2024, 8, 29, 9, 0, 0, 0, time.UTC)},
	}
	svc := newReportService(t, &aggregatesMock{}, entries, nil)

	file, err := svc.Export(context.Background(), ExportRequest{Format: "xlsx"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(file.Payload))
	require.NoError(t, err)
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "007", rows[1][12])
	assert.Equal(t, "+5", rows[2][12])

	ratingType, err := f.GetCellType(sheet, "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, ratingType)
	commentType, err := f.GetCellType(sheet, "M2")
	require.NoError(t, err)
	assert.Equal(t, excelize.CellTypeSharedString, commentType)
}

func TestReportExportErrors(t *testing.T) {
	svc := newReportService(t, &aggregatesMock{}, nil, nil)

	_, err := svc.Export(context.Background(), ExportRequest{Scope: models.ExportScopeSubject, Name: "Astrology"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.Export(context.Background(), ExportRequest{Format: "docx"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), ExportRequest{Scope: "class"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
