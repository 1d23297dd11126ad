package models

import "time"

// TeacherSubjectSummary aggregates ratings for one teacher/subject pair.
type TeacherSubjectSummary struct {
	Teacher        string    `json:"teacher"`
	Subject        string    `json:"subject"`
	FeedbackCount  int       `json:"feedback_count"`
	Averages       []float64 `json:"averages"`
	OverallAverage float64   `json:"overall_average"`
}

// FeedbackSummary is the admin dashboard payload. Averages over empty
// groups are reported as 0; FeedbackCount disambiguates.
type FeedbackSummary struct {
	TotalTokens        int                     `json:"total_tokens"`
	UsedTokens         int                     `json:"used_tokens"`
	UnusedTokens       int                     `json:"unused_tokens"`
	FeedbackCount      int                     `json:"feedback_count"`
	Questions          []string                `json:"questions"`
	PerQuestionAverage []float64               `json:"per_question_average"`
	PerTeacherCount    map[string]int          `json:"per_teacher_count"`
	TeacherSubjects    []TeacherSubjectSummary `json:"teacher_subjects"`
	GeneratedAt        time.Time               `json:"generated_at"`
}

// ExportScope selects which feedback rows an export contains.
type ExportScope string

const (
	ExportScopeAll     ExportScope = "all"
	ExportScopeTeacher ExportScope = "teacher"
	ExportScopeSubject ExportScope = "subject"
)
