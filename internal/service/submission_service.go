package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/repository"
	"github.com/noah-isme/feedback-api/pkg/config"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

// Submission outcomes, also used as metric labels.
const (
	OutcomeAccepted          = "accepted"
	OutcomeInvalidOrUsed     = "invalid_or_used_token"
	OutcomeValidationFailed  = "validation_error"
	OutcomeInternalFailure   = "internal_error"
	ReasonInvalidOrUsedToken = "InvalidOrUsedToken"
	ReasonValidationError    = "ValidationError"
)

type submissionStore interface {
	Begin(ctx context.Context) (repository.SubmissionTx, error)
}

type feedbackBuilder interface {
	Validate(input FeedbackInput) []string
	Build(input FeedbackInput) (*models.FeedbackEntry, error)
}

type submissionRecorder interface {
	RecordSubmission(outcome string)
}

// SubmitFeedbackRequest is a student's token plus their ratings.
type SubmitFeedbackRequest struct {
	Token   string  `json:"token"`
	Teacher string  `json:"teacher"`
	Subject string  `json:"subject"`
	Ratings []int   `json:"ratings"`
	Comment *string `json:"comment"`
}

func (r SubmitFeedbackRequest) feedback() FeedbackInput {
	return FeedbackInput{Teacher: r.Teacher, Subject: r.Subject, Ratings: r.Ratings, Comment: r.Comment}
}

// SubmissionResult is the terminal state of one submission. The stored
// entry id is kept server side.
type SubmissionResult struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason,omitempty"`
	Fields   []string `json:"fields,omitempty"`
	ID       int64    `json:"-"`
}

// SubmissionService runs the token check, validation and insert of a
// submission as one unit.
type SubmissionService struct {
	store       submissionStore
	feedback    feedbackBuilder
	invalidator summaryInvalidator
	metrics     submissionRecorder
	logger      *zap.Logger
	policy      string
}

// NewSubmissionService constructs a SubmissionService. invalidator and
// metrics may be nil.
func NewSubmissionService(store submissionStore, feedback feedbackBuilder, invalidator summaryInvalidator, metrics submissionRecorder, logger *zap.Logger, policy string) *SubmissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy != config.PolicyValidateFirst {
		policy = config.PolicyConsumeFirst
	}
	return &SubmissionService{store: store, feedback: feedback, invalidator: invalidator, metrics: metrics, logger: logger, policy: policy}
}

// Policy returns the active ordering policy.
func (s *SubmissionService) Policy() string {
	return s.policy
}

// Submit processes one submission. Rejections return both a result
// describing the rejection and a typed error carrying the HTTP status.
//
// Under consume_first the token is spent before the payload is validated,
// so an invalid payload still burns the token. Under validate_first an
// invalid payload is rejected before the token is touched. In both
// policies a failed insert rolls the consume back.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitFeedbackRequest) (*SubmissionResult, error) {
	token := NormalizeToken(req.Token)
	input := req.feedback()

	if s.policy == config.PolicyValidateFirst {
		if fields := s.feedback.Validate(input); len(fields) > 0 {
			return s.rejectValidation(fields)
		}
	}

	if !ValidTokenFormat(token) {
		return s.rejectToken()
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return s.fail(err, "failed to start submission")
	}

	consumed, err := tx.ConsumeToken(ctx, token)
	if err != nil {
		s.rollback(tx)
		return s.fail(err, "failed to check token")
	}
	if !consumed {
		s.rollback(tx)
		return s.rejectToken()
	}

	entry, err := s.feedback.Build(input)
	if err != nil {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Code != appErrors.ErrValidation.Code {
			s.rollback(tx)
			return s.fail(err, "failed to build feedback")
		}
		// The token stays consumed: commit the consume alone.
		if err := tx.Commit(); err != nil {
			return s.fail(err, "failed to commit token consumption")
		}
		return s.rejectValidation(appErr.Fields)
	}

	id, err := tx.InsertFeedback(ctx, entry)
	if err != nil {
		s.rollback(tx)
		return s.fail(err, "failed to store feedback")
	}
	if err := tx.Commit(); err != nil {
		return s.fail(err, "failed to commit feedback")
	}

	s.record(OutcomeAccepted)
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(ctx)
	}
	return &SubmissionResult{Accepted: true, ID: id}, nil
}

func (s *SubmissionService) rejectToken() (*SubmissionResult, error) {
	s.record(OutcomeInvalidOrUsed)
	return &SubmissionResult{Reason: ReasonInvalidOrUsedToken}, appErrors.Clone(appErrors.ErrInvalidOrUsedToken, "")
}

func (s *SubmissionService) rejectValidation(fields []string) (*SubmissionResult, error) {
	s.record(OutcomeValidationFailed)
	result := &SubmissionResult{Reason: ReasonValidationError, Fields: append([]string(nil), fields...)}
	return result, appErrors.WithFields(appErrors.ErrValidation, "invalid feedback payload", fields...)
}

func (s *SubmissionService) fail(err error, message string) (*SubmissionResult, error) {
	s.record(OutcomeInternalFailure)
	s.logger.Error(message, zap.Error(err))
	return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *SubmissionService) rollback(tx repository.SubmissionTx) {
	if err := tx.Rollback(); err != nil {
		s.logger.Warn("submission rollback failed", zap.Error(err))
	}
}

func (s *SubmissionService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSubmission(outcome)
	}
}
