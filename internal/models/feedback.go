package models

import "time"

// RatingCount is the number of rated questions in every feedback entry.
const RatingCount = 10

// FeedbackEntry is one anonymous submission. It intentionally carries no
// reference to the token that authorised it.
type FeedbackEntry struct {
	ID              int64     `json:"id"`
	Teacher         string    `json:"teacher"`
	Subject         string    `json:"subject"`
	Ratings         []int     `json:"ratings"`
	Comment         *string   `json:"comment,omitempty"`
	Semester        int       `json:"semester,omitempty"`
	AcademicSession string    `json:"academic_session,omitempty"`
	Branch          string    `json:"branch,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// FeedbackFilter narrows feedback queries. A zero PageSize returns every
// matching row.
type FeedbackFilter struct {
	Teacher  string
	Subject  string
	Page     int
	PageSize int
}
