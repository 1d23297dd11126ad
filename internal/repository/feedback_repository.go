package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/feedback-api/internal/models"
)

const (
	ratingColumns   = "q1, q2, q3, q4, q5, q6, q7, q8, q9, q10"
	feedbackColumns = "id, teacher, subject, semester, academic_session, branch, " + ratingColumns + ", comment, submitted_at"
	ratingAverages  = "COALESCE(AVG(q1), 0) AS q1, COALESCE(AVG(q2), 0) AS q2, COALESCE(AVG(q3), 0) AS q3, " +
		"COALESCE(AVG(q4), 0) AS q4, COALESCE(AVG(q5), 0) AS q5, COALESCE(AVG(q6), 0) AS q6, " +
		"COALESCE(AVG(q7), 0) AS q7, COALESCE(AVG(q8), 0) AS q8, COALESCE(AVG(q9), 0) AS q9, COALESCE(AVG(q10), 0) AS q10"
)

// FeedbackRepository stores anonymous feedback entries.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs a FeedbackRepository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

type feedbackRow struct {
	ID              int64          `db:"id"`
	Teacher         string         `db:"teacher"`
	Subject         string         `db:"subject"`
	Semester        sql.NullInt64  `db:"semester"`
	AcademicSession sql.NullString `db:"academic_session"`
	Branch          sql.NullString `db:"branch"`
	Q1              int            `db:"q1"`
	Q2              int            `db:"q2"`
	Q3              int            `db:"q3"`
	Q4              int            `db:"q4"`
	Q5              int            `db:"q5"`
	Q6              int            `db:"q6"`
	Q7              int            `db:"q7"`
	Q8              int            `db:"q8"`
	Q9              int            `db:"q9"`
	Q10             int            `db:"q10"`
	Comment         sql.NullString `db:"comment"`
	SubmittedAt     time.Time      `db:"submitted_at"`
}

func (row feedbackRow) toModel() models.FeedbackEntry {
	entry := models.FeedbackEntry{
		ID:              row.ID,
		Teacher:         row.Teacher,
		Subject:         row.Subject,
		Semester:        int(row.Semester.Int64),
		AcademicSession: row.AcademicSession.String,
		Branch:          row.Branch.String,
		Ratings:         []int{row.Q1, row.Q2, row.Q3, row.Q4, row.Q5, row.Q6, row.Q7, row.Q8, row.Q9, row.Q10},
		SubmittedAt:     row.SubmittedAt.UTC(),
	}
	if row.Comment.Valid {
		comment := row.Comment.String
		entry.Comment = &comment
	}
	return entry
}

type averageRow struct {
	Q1  float64 `db:"q1"`
	Q2  float64 `db:"q2"`
	Q3  float64 `db:"q3"`
	Q4  float64 `db:"q4"`
	Q5  float64 `db:"q5"`
	Q6  float64 `db:"q6"`
	Q7  float64 `db:"q7"`
	Q8  float64 `db:"q8"`
	Q9  float64 `db:"q9"`
	Q10 float64 `db:"q10"`
}

func (a averageRow) values() []float64 {
	return []float64{a.Q1, a.Q2, a.Q3, a.Q4, a.Q5, a.Q6, a.Q7, a.Q8, a.Q9, a.Q10}
}

// QuestionAverages holds per-question means over a set of entries.
type QuestionAverages struct {
	Count    int
	Averages []float64
}

// GroupAverages holds per-question means for one teacher/subject pair.
type GroupAverages struct {
	Teacher  string
	Subject  string
	Count    int
	Averages []float64
}

// Create inserts the entry and returns its id.
func (r *FeedbackRepository) Create(ctx context.Context, entry *models.FeedbackEntry) (int64, error) {
	return insertFeedback(ctx, r.db, entry)
}

// List returns entries newest first together with the total match count.
func (r *FeedbackRepository) List(ctx context.Context, filter models.FeedbackFilter) ([]models.FeedbackEntry, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Teacher != "" {
		conditions = append(conditions, "teacher = ?")
		args = append(args, filter.Teacher)
	}
	if filter.Subject != "" {
		conditions = append(conditions, "subject = ?")
		args = append(args, filter.Subject)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := "SELECT " + feedbackColumns + " FROM feedback" + where + " ORDER BY submitted_at DESC, id DESC"
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.PageSize, (page-1)*filter.PageSize)
	}

	var rows []feedbackRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) FROM feedback" + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}

	entries := make([]models.FeedbackEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries, total, nil
}

// QuestionAverages computes the mean of each question over all entries.
// Empty tables yield zero averages.
func (r *FeedbackRepository) QuestionAverages(ctx context.Context) (*QuestionAverages, error) {
	var row struct {
		Count int `db:"feedback_count"`
		averageRow
	}
	query := "SELECT COUNT(*) AS feedback_count, " + ratingAverages + " FROM feedback"
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, fmt.Errorf("question averages: %w", err)
	}
	return &QuestionAverages{Count: row.Count, Averages: row.averageRow.values()}, nil
}

// TeacherCounts returns the number of entries per teacher.
func (r *FeedbackRepository) TeacherCounts(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Teacher string `db:"teacher"`
		Count   int    `db:"feedback_count"`
	}
	const query = `SELECT teacher, COUNT(*) AS feedback_count FROM feedback GROUP BY teacher ORDER BY teacher`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("teacher counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Teacher] = row.Count
	}
	return counts, nil
}

// GroupAverages returns per-question means for every teacher/subject pair
// that has feedback.
func (r *FeedbackRepository) GroupAverages(ctx context.Context) ([]GroupAverages, error) {
	var rows []struct {
		Teacher string `db:"teacher"`
		Subject string `db:"subject"`
		Count   int    `db:"feedback_count"`
		averageRow
	}
	query := "SELECT teacher, subject, COUNT(*) AS feedback_count, " + ratingAverages +
		" FROM feedback GROUP BY teacher, subject ORDER BY teacher, subject"
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("group averages: %w", err)
	}
	groups := make([]GroupAverages, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, GroupAverages{
			Teacher:  row.Teacher,
			Subject:  row.Subject,
			Count:    row.Count,
			Averages: row.averageRow.values(),
		})
	}
	return groups, nil
}

func insertFeedback(ctx context.Context, q dbtx, entry *models.FeedbackEntry) (int64, error) {
	if len(entry.Ratings) != models.RatingCount {
		return 0, fmt.Errorf("insert feedback: expected %d ratings, got %d", models.RatingCount, len(entry.Ratings))
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}

	query := q.Rebind(`INSERT INTO feedback (teacher, subject, semester, academic_session, branch, ` + ratingColumns + `, comment, submitted_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	args := []interface{}{
		entry.Teacher,
		entry.Subject,
		sql.NullInt64{Int64: int64(entry.Semester), Valid: entry.Semester > 0},
		sql.NullString{String: entry.AcademicSession, Valid: entry.AcademicSession != ""},
		sql.NullString{String: entry.Branch, Valid: entry.Branch != ""},
	}
	for _, rating := range entry.Ratings {
		args = append(args, rating)
	}
	var comment sql.NullString
	if entry.Comment != nil {
		comment = sql.NullString{String: *entry.Comment, Valid: true}
	}
	args = append(args, comment, entry.SubmittedAt)

	var id int64
	if err := q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert feedback: %w", err)
	}
	entry.ID = id
	return id, nil
}
