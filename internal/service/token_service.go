package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/repository"
	appErrors "github.com/noah-isme/feedback-api/pkg/errors"
)

const (
	defaultTokenLength   = 6
	defaultTokenMaxBatch = 1000
	generateAttempts     = 3
	resetConfirmation    = "RESET"
)

type tokenRepository interface {
	Issue(ctx context.Context, values []string) error
	IsValid(ctx context.Context, value string) (bool, error)
	Stats(ctx context.Context) (*models.TokenStats, error)
	Reset(ctx context.Context) error
}

type summaryInvalidator interface {
	InvalidateSummary(ctx context.Context)
}

type tokenIssueRecorder interface {
	AddTokensIssued(n int)
}

// GenerateTokensRequest asks for a batch of new tokens.
type GenerateTokensRequest struct {
	Count  int `json:"count" validate:"required,min=1"`
	Length int `json:"length" validate:"omitempty,min=4,max=32"`
}

// ResetRequest must carry the literal confirmation word.
type ResetRequest struct {
	Confirm string `json:"confirm" validate:"required,eq=RESET"`
}

// TokenConfig bounds token generation.
type TokenConfig struct {
	Length   int
	MaxBatch int
}

// TokenService issues, verifies and counts feedback tokens.
type TokenService struct {
	repo        tokenRepository
	generator   *TokenGenerator
	invalidator summaryInvalidator
	metrics     tokenIssueRecorder
	validator   *validator.Validate
	logger      *zap.Logger
	config      TokenConfig
}

// NewTokenService constructs a TokenService. invalidator and metrics may be nil.
func NewTokenService(repo tokenRepository, generator *TokenGenerator, invalidator summaryInvalidator, metrics tokenIssueRecorder, validate *validator.Validate, logger *zap.Logger, cfg TokenConfig) *TokenService {
	if generator == nil {
		generator = NewTokenGenerator()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Length <= 0 {
		cfg.Length = defaultTokenLength
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultTokenMaxBatch
	}
	return &TokenService{
		repo:        repo,
		generator:   generator,
		invalidator: invalidator,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		config:      cfg,
	}
}

// Issue stores externally supplied tokens. The whole batch is rejected when
// any value is malformed or already known.
func (s *TokenService) Issue(ctx context.Context, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "no tokens supplied", "tokens")
	}
	if len(values) > s.config.MaxBatch {
		return nil, appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("at most %d tokens per batch", s.config.MaxBatch), "tokens")
	}

	normalized := make([]string, len(values))
	var invalid []string
	for i, v := range values {
		normalized[i] = NormalizeToken(v)
		if !ValidTokenFormat(normalized[i]) {
			invalid = append(invalid, fmt.Sprintf("tokens[%d]", i))
		}
	}
	if len(invalid) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, "tokens must be 4-32 letters or digits", invalid...)
	}

	if err := s.repo.Issue(ctx, normalized); err != nil {
		var dupErr *repository.DuplicateTokenError
		if errors.As(err, &dupErr) {
			return nil, appErrors.WithFields(appErrors.ErrDuplicateToken, "tokens already exist", dupErr.Tokens...)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue tokens")
	}

	if s.metrics != nil {
		s.metrics.AddTokensIssued(len(normalized))
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(ctx)
	}
	s.logger.Info("tokens issued", zap.Int("count", len(normalized)))
	return normalized, nil
}

// Generate creates and issues count random tokens, retrying when a
// generated value collides with an existing token.
func (s *TokenService) Generate(ctx context.Context, req GenerateTokensRequest) ([]string, error) {
	if err := s.validator.Struct(req); err != nil {
		appErr := appErrors.WithFields(appErrors.ErrValidation, "invalid token generation payload", requestFields(err)...)
		appErr.Err = err
		return nil, appErr
	}
	if req.Count > s.config.MaxBatch {
		return nil, appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("at most %d tokens per batch", s.config.MaxBatch), "count")
	}
	length := req.Length
	if length == 0 {
		length = s.config.Length
	}

	var lastErr error
	for attempt := 0; attempt < generateAttempts; attempt++ {
		batch, err := s.generator.Batch(req.Count, length)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate tokens")
		}
		issued, err := s.Issue(ctx, batch)
		if err == nil {
			return issued, nil
		}
		if !errors.Is(err, appErrors.ErrDuplicateToken) {
			return nil, err
		}
		lastErr = err
		s.logger.Debug("generated token collided, retrying", zap.Int("attempt", attempt+1))
	}
	return nil, lastErr
}

// Verify reports whether value is an issued, unused token without
// consuming it.
func (s *TokenService) Verify(ctx context.Context, value string) (bool, error) {
	value = NormalizeToken(value)
	if !ValidTokenFormat(value) {
		return false, nil
	}
	valid, err := s.repo.IsValid(ctx, value)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify token")
	}
	return valid, nil
}

// Stats returns token usage counts.
func (s *TokenService) Stats(ctx context.Context) (*models.TokenStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load token stats")
	}
	return stats, nil
}

// Reset wipes all tokens and feedback once the caller confirms.
func (s *TokenService) Reset(ctx context.Context, req ResetRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.WithFields(appErrors.ErrValidation, fmt.Sprintf("confirm must equal %q", resetConfirmation), requestFields(err)...)
	}
	if err := s.repo.Reset(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset store")
	}
	if s.invalidator != nil {
		s.invalidator.InvalidateSummary(ctx)
	}
	s.logger.Warn("feedback store reset")
	return nil
}

// requestFields names the offending request fields in their JSON spelling.
func requestFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"payload"}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.StructField()))
	}
	return fields
}
