package progress

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

type ReportStatus string

const (
	ReportSubmitted ReportStatus = "Submitted"
	ReportReviewed  ReportStatus = "Reviewed"
)

// feedbackSeparator joins appended feedback entries.
const feedbackSeparator = "\n\n"

type Log struct {
	ID             int64      `json:"log_id" db:"log_id"`
	ProjectID      int64      `json:"project_id" db:"project_id"`
	ProjectTitle   string     `json:"project_title" db:"project_title"`
	StudentID      int64      `json:"student_id" db:"student_id"`
	StudentName    string     `json:"student_name" db:"student_name"`
	Details        string     `json:"details" db:"details"`
	SubmissionDate time.Time  `json:"submission_date" db:"submission_date"` // UTC
	Feedback       *string    `json:"feedback" db:"feedback"`
	FeedbackBy     *int64     `json:"feedback_by" db:"feedback_by"`
	FeedbackAt     *time.Time `json:"feedback_at" db:"feedback_at"` // UTC
}

type Report struct {
	ID             int64        `json:"report_id" db:"report_id"`
	ProjectID      int64        `json:"project_id" db:"project_id"`
	ProjectTitle   string       `json:"project_title" db:"project_title"`
	StudentID      int64        `json:"student_id" db:"student_id"`
	StudentName    string       `json:"student_name" db:"student_name"`
	Title          string       `json:"title" db:"title"`
	Details        string       `json:"details" db:"details"`
	SubmissionDate time.Time    `json:"submission_date" db:"submission_date"` // UTC
	Status         ReportStatus `json:"status" db:"status"`
	Grade          *string      `json:"grade" db:"grade"`
	Feedback       *string      `json:"feedback" db:"feedback"`
	ReviewedBy     *int64       `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt     *time.Time   `json:"reviewed_at" db:"reviewed_at"` // UTC
}

// Feedback is one supervisor feedback entry, appended to a Log or Report.
type Feedback struct {
	ItemID int64
	By     int64
	Text   string
	Grade  *string // reports only
	At     time.Time
}

// AppendFeedback returns existing followed by entry.
func AppendFeedback(existing *string, entry string) string {
	if existing == nil || *existing == "" {
		return entry
	}
	return *existing + feedbackSeparator + entry
}

// StaleStudent holds an active project but has not logged progress lately.
type StaleStudent struct {
	StudentID    int64      `db:"student_id"`
	ProjectID    int64      `db:"project_id"`
	ProjectTitle string     `db:"project_title"`
	LastLogAt    *time.Time `db:"last_log_at"`
}

type NewLog struct {
	Details string `json:"details" validate:"required,min=20"`
}

func (nl *NewLog) Validate(validate *validator.Validate) error {
	nl.Details = core.CleanString(nl.Details)
	return validate.Struct(nl)
}

type NewReport struct {
	Title   string `json:"title" validate:"required,notblank,max=200"`
	Details string `json:"details" validate:"required,min=50"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.Title = core.CleanString(nr.Title)
	nr.Details = core.CleanString(nr.Details)
	return validate.Struct(nr)
}

type LogFeedback struct {
	Feedback string `json:"feedback" validate:"required,notblank,max=2000"`
}

func (lf *LogFeedback) Validate(validate *validator.Validate) error {
	lf.Feedback = core.CleanString(lf.Feedback)
	return validate.Struct(lf)
}

type ReportFeedback struct {
	Feedback string `json:"feedback" validate:"required,notblank,max=2000"`
	Grade    string `json:"grade" validate:"omitempty,max=5"`
}

func (rf *ReportFeedback) Validate(validate *validator.Validate) error {
	rf.Feedback = core.CleanString(rf.Feedback)
	rf.Grade = core.CleanString(rf.Grade)
	return validate.Struct(rf)
}

type QueryFilter struct {
	StudentID    int64
	SupervisorID int64
	ProjectID    int64
	Unreviewed   bool // logs without feedback, reports still Submitted
}
