package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feedback-api/internal/models"
)

// TokenRepository persists single-use feedback tokens.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository constructs a TokenRepository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Issue inserts every value as an unused token in one transaction. Nothing
// is written when any value already exists or repeats in the batch.
func (r *TokenRepository) Issue(ctx context.Context, values []string) error {
	if len(values) == 0 {
		return nil
	}
	if dups := batchDuplicates(values); len(dups) > 0 {
		return &DuplicateTokenError{Tokens: dups}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin issue tokens tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := sqlx.In(`SELECT token FROM tokens WHERE token IN (?)`, values)
	if err != nil {
		return fmt.Errorf("build existing tokens query: %w", err)
	}
	var existing []string
	if err = tx.SelectContext(ctx, &existing, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("lookup existing tokens: %w", err)
	}
	if len(existing) > 0 {
		sort.Strings(existing)
		err = &DuplicateTokenError{Tokens: existing}
		return err
	}

	insert := tx.Rebind(`INSERT INTO tokens (token, is_used, created_at) VALUES (?, FALSE, ?)`)
	now := time.Now().UTC()
	for _, value := range values {
		if _, err = tx.ExecContext(ctx, insert, value, now); err != nil {
			if isUniqueViolation(err) {
				err = &DuplicateTokenError{Tokens: []string{value}}
				return err
			}
			return fmt.Errorf("insert token: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit issue tokens tx: %w", err)
	}
	return nil
}

// IsValid reports whether the token exists and is unused. It never
// changes state.
func (r *TokenRepository) IsValid(ctx context.Context, value string) (bool, error) {
	var used bool
	query := r.db.Rebind(`SELECT is_used FROM tokens WHERE token = ?`)
	if err := r.db.GetContext(ctx, &used, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token: %w", err)
	}
	return !used, nil
}

// CheckAndConsume marks an unused token as used. It returns false, with no
// side effects, when the token is absent or already used.
func (r *TokenRepository) CheckAndConsume(ctx context.Context, value string) (bool, error) {
	return consumeToken(ctx, r.db, value)
}

// Stats counts issued and used tokens.
func (r *TokenRepository) Stats(ctx context.Context) (*models.TokenStats, error) {
	var stats models.TokenStats
	const query = `SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_used THEN 1 ELSE 0 END), 0) AS used FROM tokens`
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("token stats: %w", err)
	}
	stats.Unused = stats.Total - stats.Used
	return &stats, nil
}

// Reset removes all feedback and tokens.
func (r *TokenRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset tx: %w", err)
	}
	for _, stmt := range []string{`DELETE FROM feedback`, `DELETE FROM tokens`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("reset store: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset tx: %w", err)
	}
	return nil
}

// consumeToken is the single conditional update that serialises concurrent
// submissions of the same token.
func consumeToken(ctx context.Context, q dbtx, value string) (bool, error) {
	query := q.Rebind(`UPDATE tokens SET is_used = TRUE WHERE token = ? AND is_used = FALSE`)
	res, err := q.ExecContext(ctx, query, value)
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume token rows affected: %w", err)
	}
	return affected == 1, nil
}
