package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/repository"
	"github.com/noah-isme/feedback-api/pkg/config"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
	"github.com/noah-isme/feedback-api/pkg/export"
)

const summaryCacheKey = "summary"

type tokenStatsReader interface {
	Stats(ctx context.Context) (*models.TokenStats, error)
}

type feedbackAggregates interface {
	QuestionAverages(ctx context.Context) (*repository.QuestionAverages, error)
	TeacherCounts(ctx context.Context) (map[string]int, error)
	GroupAverages(ctx context.Context) ([]repository.GroupAverages, error)
}

type feedbackQuerier interface {
	QueryAll(ctx context.Context) ([]models.FeedbackEntry, error)
	QueryByTeacher(ctx context.Context, teacher string) ([]models.FeedbackEntry, error)
	QueryBySubject(ctx context.Context, subject string) ([]models.FeedbackEntry, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

type datasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportRequest selects the rows and encoding of an export.
type ExportRequest struct {
	Scope  models.ExportScope
	Name   string
	Format string
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
	Rows        int
}

// ReportConfig tunes reporting.
type ReportConfig struct {
	SummaryTTL time.Duration
}

// ReportService aggregates feedback for the admin dashboard and exports.
type ReportService struct {
	tokens    tokenStatsReader
	feedback  feedbackAggregates
	entries   feedbackQuerier
	catalog   *config.Catalog
	cache     summaryCache
	renderers map[export.Format]datasetRenderer
	logger    *zap.Logger
	cfg       ReportConfig
	now       func() time.Time
}

// NewReportService constructs a ReportService. cache may be nil.
func NewReportService(tokens tokenStatsReader, feedback feedbackAggregates, entries feedbackQuerier, catalog *config.Catalog, cache summaryCache, logger *zap.Logger, cfg ReportConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SummaryTTL <= 0 {
		cfg.SummaryTTL = time.Minute
	}
	return &ReportService{
		tokens:   tokens,
		feedback: feedback,
		entries:  entries,
		catalog:  catalog,
		cache:    cache,
		renderers: map[export.Format]datasetRenderer{
			export.FormatXLSX: export.NewXLSXExporter(),
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatPDF:  export.NewPDFExporter(),
		},
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Summary returns dashboard aggregates. The boolean reports a cache hit.
func (s *ReportService) Summary(ctx context.Context) (*models.FeedbackSummary, bool, error) {
	if s.cache != nil {
		var cached models.FeedbackSummary
		hit, err := s.cache.Get(ctx, summaryCacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.buildSummary(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.cfg.SummaryTTL); err != nil {
			s.logger.Debug("summary cache write skipped", zap.Error(err))
		}
	}
	return summary, false, nil
}

// InvalidateSummary drops the cached summary. Failures are logged only.
func (s *ReportService) InvalidateSummary(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, summaryCacheKey); err != nil {
		s.logger.Warn("summary cache invalidation failed", zap.Error(err))
	}
}

func (s *ReportService) buildSummary(ctx context.Context) (*models.FeedbackSummary, error) {
	stats, err := s.tokens.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token stats")
	}
	averages, err := s.feedback.QuestionAverages(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute question averages")
	}
	counts, err := s.feedback.TeacherCounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count feedback per teacher")
	}
	groups, err := s.feedback.GroupAverages(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute teacher averages")
	}

	perTeacher := make(map[string]int, len(counts))
	for _, teacher := range s.catalog.Teachers() {
		perTeacher[teacher] = 0
	}
	for teacher, count := range counts {
		perTeacher[teacher] = count
	}

	pairs := make([]models.TeacherSubjectSummary, 0, len(groups))
	for _, g := range groups {
		rounded := roundAll(g.Averages)
		pairs = append(pairs, models.TeacherSubjectSummary{
			Teacher:        g.Teacher,
			Subject:        g.Subject,
			FeedbackCount:  g.Count,
			Averages:       rounded,
			OverallAverage: round2(mean(g.Averages)),
		})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].OverallAverage != pairs[j].OverallAverage {
			return pairs[i].OverallAverage > pairs[j].OverallAverage
		}
		if pairs[i].Teacher != pairs[j].Teacher {
			return pairs[i].Teacher < pairs[j].Teacher
		}
		return pairs[i].Subject < pairs[j].Subject
	})

	perQuestion := roundAll(averages.Averages)
	if len(perQuestion) != models.RatingCount {
		perQuestion = make([]float64, models.RatingCount)
	}

	return &models.FeedbackSummary{
		TotalTokens:        stats.Total,
		UsedTokens:         stats.Used,
		UnusedTokens:       stats.Unused,
		FeedbackCount:      averages.Count,
		Questions:          s.catalog.Questions(),
		PerQuestionAverage: perQuestion,
		PerTeacherCount:    perTeacher,
		TeacherSubjects:    pairs,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// Export renders the selected feedback rows. An empty selection yields a
// header-only table.
func (s *ReportService) Export(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, appErrors.WithFields(appErrors.ErrValidation, err.Error(), "format")
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format), "format")
	}

	scope := req.Scope
	if scope == "" {
		scope = models.ExportScopeAll
	}
	name := strings.TrimSpace(req.Name)

	var entries []models.FeedbackEntry
	switch scope {
	case models.ExportScopeAll:
		entries, err = s.entries.QueryAll(ctx)
	case models.ExportScopeTeacher:
		entries, err = s.entries.QueryByTeacher(ctx, name)
	case models.ExportScopeSubject:
		entries, err = s.entries.QueryBySubject(ctx, name)
	default:
		return nil, appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("unknown export scope %q", scope), "scope")
	}
	if err != nil {
		return nil, err
	}

	label := "all"
	if scope != models.ExportScopeAll {
		label = string(scope) + "_" + filenameSafe(name)
	}

	payload, err := renderer.Render(feedbackDataset(entries), "Feedback")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	s.logger.Info("feedback exported", zap.String("scope", string(scope)), zap.String("format", string(format)), zap.Int("rows", len(entries)))
	return &ExportFile{
		Filename:    fmt.Sprintf("feedback_%s_%s.%s", label, s.now().Format("20060102_150405"), format.Extension()),
		ContentType: format.ContentType(),
		Payload:     payload,
		Rows:        len(entries),
	}, nil
}

// ExportHeaders is the fixed column order of every export.
func ExportHeaders() []string {
	headers := []string{"Teacher", "Subject"}
	for i := 1; i <= models.RatingCount; i++ {
		headers = append(headers, "Q"+strconv.Itoa(i))
	}
	return append(headers, "Comment", "Submitted At")
}

func feedbackDataset(entries []models.FeedbackEntry) export.Dataset {
	headers := ExportHeaders()
	rows := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		row := map[string]string{
			"Teacher":      e.Teacher,
			"Subject":      e.Subject,
			"Submitted At": e.SubmittedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		for i, rating := range e.Ratings {
			row["Q"+strconv.Itoa(i+1)] = strconv.Itoa(rating)
		}
		if e.Comment != nil {
			row["Comment"] = *e.Comment
		}
		rows = append(rows, row)
	}
	numeric := make(map[string]bool, models.RatingCount)
	for i := 1; i <= models.RatingCount; i++ {
		numeric["Q"+strconv.Itoa(i)] = true
	}
	return export.Dataset{Headers: headers, Rows: rows, Numeric: numeric}
}

func filenameSafe(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundAll(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = round2(v)
	}
	return out
}
