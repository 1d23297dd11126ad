package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-api/internal/models"
)

func TestSubmissionTxConsumesAndInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tokens SET is_used = TRUE").WithArgs("AB12").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO feedback").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	tx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	ok, err := tx.ConsumeToken(context.Background(), "AB12")
	require.NoError(t, err)
	require.True(t, ok)
	id, err := tx.InsertFeedback(context.Background(), &models.FeedbackEntry{Teacher: "A", Subject: "B", Ratings: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionTxRollback(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE tokens").WithArgs("ZZ99").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.Begin(context.Background())
	require.NoError(t, err)
	ok, err := tx.ConsumeToken(context.Background(), "ZZ99")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
