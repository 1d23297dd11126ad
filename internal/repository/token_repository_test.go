package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "postgres")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestTokenRepositoryIssue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT token FROM tokens WHERE token IN ($1, $2)")).
		WithArgs("AB12", "CD34").
		WillReturnRows(sqlmock.NewRows([]string{"token"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tokens (token, is_used, created_at) VALUES ($1, FALSE, $2)")).
		WithArgs("AB12", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tokens").
		WithArgs("CD34", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Issue(context.Background(), []string{"AB12", "CD34"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryIssueRejectsExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token FROM tokens WHERE token IN").
		WillReturnRows(sqlmock.NewRows([]string{"token"}).AddRow("CD34"))
	mock.ExpectRollback()

	err := repo.Issue(context.Background(), []string{"AB12", "CD34"})
	var dupErr *DuplicateTokenError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, []string{"CD34"}, dupErr.Tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryIssueRejectsBatchDuplicatesWithoutQuery(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	err := repo.Issue(context.Background(), []string{"AB12", "XY99", "AB12"})
	var dupErr *DuplicateTokenError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, []string{"AB12"}, dupErr.Tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryIssueMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT token FROM tokens").WillReturnRows(sqlmock.NewRows([]string{"token"}))
	mock.ExpectExec("INSERT INTO tokens").WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Issue(context.Background(), []string{"AB12"})
	var dupErr *DuplicateTokenError
	require.True(t, errors.As(err, &dupErr))
	assert.Equal(t, []string{"AB12"}, dupErr.Tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryCheckAndConsume(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	consume := regexp.QuoteMeta("UPDATE tokens SET is_used = TRUE WHERE token = $1 AND is_used = FALSE")
	mock.ExpectExec(consume).WithArgs("AB12").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(consume).WithArgs("AB12").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.CheckAndConsume(context.Background(), "AB12")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CheckAndConsume(context.Background(), "AB12")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryIsValid(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	query := regexp.QuoteMeta("SELECT is_used FROM tokens WHERE token = $1")
	mock.ExpectQuery(query).WithArgs("AB12").WillReturnRows(sqlmock.NewRows([]string{"is_used"}).AddRow(false))
	mock.ExpectQuery(query).WithArgs("ZZ99").WillReturnRows(sqlmock.NewRows([]string{"is_used"}))

	valid, err := repo.IsValid(context.Background(), "AB12")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = repo.IsValid(context.Background(), "ZZ99")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepositoryStats(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WillReturnRows(sqlmock.NewRows([]string{"total", "used"}).AddRow(5, 2))

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Used)
	assert.Equal(t, 3, stats.Unused)
}

func TestTokenRepositoryReset(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTokenRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM feedback").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM tokens").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectCommit()

	require.NoError(t, repo.Reset(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
