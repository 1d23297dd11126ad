package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feedback-api/internal/models"
)

// SubmissionTx groups the token consume and the feedback insert of one
// submission so both land or neither does.
type SubmissionTx interface {
	ConsumeToken(ctx context.Context, value string) (bool, error)
	InsertFeedback(ctx context.Context, entry *models.FeedbackEntry) (int64, error)
	Commit() error
	Rollback() error
}

// SubmissionRepository opens submission transactions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Begin starts a submission transaction.
func (r *SubmissionRepository) Begin(ctx context.Context) (SubmissionTx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin submission tx: %w", err)
	}
	return &submissionTx{tx: tx}, nil
}

type submissionTx struct {
	tx *sqlx.Tx
}

func (s *submissionTx) ConsumeToken(ctx context.Context, value string) (bool, error) {
	return consumeToken(ctx, s.tx, value)
}

func (s *submissionTx) InsertFeedback(ctx context.Context, entry *models.FeedbackEntry) (int64, error) {
	return insertFeedback(ctx, s.tx, entry)
}

func (s *submissionTx) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}

func (s *submissionTx) Rollback() error {
	if err := s.tx.Rollback(); err != nil {
		return fmt.Errorf("rollback submission tx: %w", err)
	}
	return nil
}
