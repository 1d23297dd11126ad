package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/feedback-api/pkg/config"
)

func TestOpenSQLiteAppliesSchemaIdempotently(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "feedback.db")}

	db, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	var tables []string
	require.NoError(t, db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('tokens', 'feedback') ORDER BY name`))
	assert.Equal(t, []string{"feedback", "tokens"}, tables)
	require.NoError(t, db.Close())
}

func TestFeedbackTableHasNoTokenColumn(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(t.TempDir(), "feedback.db")}
	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	var columns []string
	require.NoError(t, db.Select(&columns, `SELECT name FROM pragma_table_info('feedback')`))
	assert.Contains(t, columns, "teacher")
	for _, col := range columns {
		assert.NotContains(t, col, "token")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	require.Error(t, err)
}
