package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/pkg/config"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

const defaultMaxCommentLength = 2000

type feedbackRepository interface {
	Create(ctx context.Context, entry *models.FeedbackEntry) (int64, error)
	List(ctx context.Context, filter models.FeedbackFilter) ([]models.FeedbackEntry, int, error)
}

// FeedbackInput is the rated part of a submission.
type FeedbackInput struct {
	Teacher string  `json:"teacher" validate:"required"`
	Subject string  `json:"subject" validate:"required"`
	Ratings []int   `json:"ratings" validate:"len=10,dive,min=1,max=10"`
	Comment *string `json:"comment"`
}

// FeedbackService validates and stores feedback against the survey catalog.
type FeedbackService struct {
	repo             feedbackRepository
	catalog          *config.Catalog
	validator        *validator.Validate
	logger           *zap.Logger
	maxCommentLength int
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(repo feedbackRepository, catalog *config.Catalog, validate *validator.Validate, logger *zap.Logger, maxCommentLength int) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	validate.RegisterTagNameFunc(jsonFieldName)
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxCommentLength <= 0 {
		maxCommentLength = defaultMaxCommentLength
	}
	return &FeedbackService{repo: repo, catalog: catalog, validator: validate, logger: logger, maxCommentLength: maxCommentLength}
}

// Validate returns the offending fields of input, or nil when it is valid.
func (s *FeedbackService) Validate(input FeedbackInput) []string {
	input = normalizeFeedbackInput(input)

	var fields []string
	if err := s.validator.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []string{"payload"}
		}
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}

	teacherKnown := input.Teacher == "" || s.catalog.HasTeacher(input.Teacher)
	subjectKnown := input.Subject == "" || s.catalog.HasSubject(input.Subject)
	if !teacherKnown {
		fields = append(fields, "teacher")
	}
	if !subjectKnown {
		fields = append(fields, "subject")
	}
	if input.Teacher != "" && input.Subject != "" && teacherKnown && subjectKnown &&
		!s.catalog.AllowsPair(input.Teacher, input.Subject) {
		fields = append(fields, "teacher_subject")
	}

	if input.Comment != nil && utf8.RuneCountInString(*input.Comment) > s.maxCommentLength {
		fields = append(fields, "comment")
	}
	return fields
}

// Build validates input and returns the entry to persist, stamped with the
// academic period and the server time.
func (s *FeedbackService) Build(input FeedbackInput) (*models.FeedbackEntry, error) {
	if fields := s.Validate(input); len(fields) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "invalid feedback payload", fields...)
	}
	input = normalizeFeedbackInput(input)

	period := s.catalog.Period()
	return &models.FeedbackEntry{
		Teacher:         input.Teacher,
		Subject:         input.Subject,
		Ratings:         append([]int(nil), input.Ratings...),
		Comment:         input.Comment,
		Semester:        period.Semester,
		AcademicSession: period.Session,
		Branch:          period.Branch,
		SubmittedAt:     time.Now().UTC(),
	}, nil
}

// Record validates and stores one entry outside of any token check.
func (s *FeedbackService) Record(ctx context.Context, input FeedbackInput) (int64, error) {
	entry, err := s.Build(input)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.Create(ctx, entry)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record feedback")
	}
	return id, nil
}

// QueryAll returns every entry, newest first.
func (s *FeedbackService) QueryAll(ctx context.Context) ([]models.FeedbackEntry, error) {
	return s.query(ctx, models.FeedbackFilter{})
}

// QueryByTeacher returns the entries for one catalog teacher.
func (s *FeedbackService) QueryByTeacher(ctx context.Context, teacher string) ([]models.FeedbackEntry, error) {
	teacher = strings.TrimSpace(teacher)
	if !s.catalog.HasTeacher(teacher) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %q not found", teacher))
	}
	return s.query(ctx, models.FeedbackFilter{Teacher: teacher})
}

// QueryBySubject returns the entries for one catalog subject.
func (s *FeedbackService) QueryBySubject(ctx context.Context, subject string) ([]models.FeedbackEntry, error) {
	subject = strings.TrimSpace(subject)
	if !s.catalog.HasSubject(subject) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %q not found", subject))
	}
	return s.query(ctx, models.FeedbackFilter{Subject: subject})
}

// List returns a page of entries plus pagination data.
func (s *FeedbackService) List(ctx context.Context, filter models.FeedbackFilter) ([]models.FeedbackEntry, *models.Pagination, error) {
	filter.Teacher = strings.TrimSpace(filter.Teacher)
	filter.Subject = strings.TrimSpace(filter.Subject)
	if filter.Teacher != "" && !s.catalog.HasTeacher(filter.Teacher) {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("teacher %q not found", filter.Teacher))
	}
	if filter.Subject != "" && !s.catalog.HasSubject(filter.Subject) {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("subject %q not found", filter.Subject))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list feedback")
	}
	return entries, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func (s *FeedbackService) query(ctx context.Context, filter models.FeedbackFilter) ([]models.FeedbackEntry, error) {
	entries, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query feedback")
	}
	return entries, nil
}

func normalizeFeedbackInput(input FeedbackInput) FeedbackInput {
	input.Teacher = strings.TrimSpace(input.Teacher)
	input.Subject = strings.TrimSpace(input.Subject)
	if input.Comment != nil {
		comment := strings.TrimSpace(*input.Comment)
		if comment == "" {
			input.Comment = nil
		} else {
			input.Comment = &comment
		}
	}
	return input
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}
