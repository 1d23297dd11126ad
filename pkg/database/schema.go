package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrate creates the schema for the connected driver. Safe to call on every
// start-up.
func Migrate(db *sqlx.DB) error {
	schema := postgresSchema
	if db.DriverName() == "sqlite" {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// The feedback table deliberately has no column referring to tokens.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id BIGSERIAL PRIMARY KEY,
		teacher TEXT NOT NULL,
		subject TEXT NOT NULL,
		semester INTEGER,
		academic_session TEXT,
		branch TEXT,
		q1 SMALLINT NOT NULL CHECK (q1 BETWEEN 1 AND 10),
		q2 SMALLINT NOT NULL CHECK (q2 BETWEEN 1 AND 10),
		q3 SMALLINT NOT NULL CHECK (q3 BETWEEN 1 AND 10),
		q4 SMALLINT NOT NULL CHECK (q4 BETWEEN 1 AND 10),
		q5 SMALLINT NOT NULL CHECK (q5 BETWEEN 1 AND 10),
		q6 SMALLINT NOT NULL CHECK (q6 BETWEEN 1 AND 10),
		q7 SMALLINT NOT NULL CHECK (q7 BETWEEN 1 AND 10),
		q8 SMALLINT NOT NULL CHECK (q8 BETWEEN 1 AND 10),
		q9 SMALLINT NOT NULL CHECK (q9 BETWEEN 1 AND 10),
		q10 SMALLINT NOT NULL CHECK (q10 BETWEEN 1 AND 10),
		comment TEXT,
		submitted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_teacher ON feedback(teacher)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_subject ON feedback(subject)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		token TEXT PRIMARY KEY,
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		teacher TEXT NOT NULL,
		subject TEXT NOT NULL,
		semester INTEGER,
		academic_session TEXT,
		branch TEXT,
		q1 INTEGER NOT NULL CHECK (q1 BETWEEN 1 AND 10),
		q2 INTEGER NOT NULL CHECK (q2 BETWEEN 1 AND 10),
		q3 INTEGER NOT NULL CHECK (q3 BETWEEN 1 AND 10),
		q4 INTEGER NOT NULL CHECK (q4 BETWEEN 1 AND 10),
		q5 INTEGER NOT NULL CHECK (q5 BETWEEN 1 AND 10),
		q6 INTEGER NOT NULL CHECK (q6 BETWEEN 1 AND 10),
		q7 INTEGER NOT NULL CHECK (q7 BETWEEN 1 AND 10),
		q8 INTEGER NOT NULL CHECK (q8 BETWEEN 1 AND 10),
		q9 INTEGER NOT NULL CHECK (q9 BETWEEN 1 AND 10),
		q10 INTEGER NOT NULL CHECK (q10 BETWEEN 1 AND 10),
		comment TEXT,
		submitted_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_teacher ON feedback(teacher)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_subject ON feedback(subject)`,
}
