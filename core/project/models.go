package project

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusArchived Status = "Archived"
)

func (s Status) IsValid() bool { return s == StatusActive || s == StatusArchived }

type Project struct {
	ID             int64     `json:"project_id" db:"project_id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description" db:"description"`
	Type           string    `json:"type" db:"type"`
	Specialization string    `json:"specialization" db:"specialization"`
	Status         Status    `json:"status" db:"status"`
	ExaminerID     *int64    `json:"examiner_id" db:"examiner_id"`
	ModeratorID    *int64    `json:"moderator_id" db:"moderator_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Listing is a Project joined to one of its supervisors.
type Listing struct {
	Project
	SupervisorID    int64  `json:"supervisor_id" db:"supervisor_id"`
	SupervisorName  string `json:"supervisor_name" db:"supervisor_name"`
	SupervisorEmail string `json:"supervisor_email" db:"supervisor_email"`
}

type Assignment struct {
	ID         int64      `json:"assignment_id" db:"assignment_id"`
	StudentID  int64      `json:"student_id" db:"student_id"`
	ProjectID  int64      `json:"project_id" db:"project_id"`
	IsActive   bool       `json:"is_active" db:"is_active"`
	AssignedAt time.Time  `json:"assigned_at" db:"assigned_at"` // UTC
	EndedAt    *time.Time `json:"ended_at" db:"ended_at"`       // UTC
}

// ActiveProject is the project a student currently holds.
type ActiveProject struct {
	Listing
	AssignmentID int64     `json:"assignment_id" db:"assignment_id"`
	StudentID    int64     `json:"student_id" db:"student_id"`
	AssignedAt   time.Time `json:"assigned_at" db:"assigned_at"`
}

type NewProject struct {
	Title          string `json:"title" validate:"required,notblank,max=200"`
	Description    string `json:"description" validate:"required,min=20"`
	Type           string `json:"type" validate:"required,notblank,max=50"`
	Specialization string `json:"specialization" validate:"required,notblank,max=100"`
}

func (np *NewProject) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	np.Type = core.CleanString(np.Type)
	np.Specialization = core.CleanString(np.Specialization)
	return validate.Struct(np)
}

type QueryFilter struct {
	Search       string
	Status       Status
	SupervisorID int64
	ExaminerID   int64
	ModeratorID  int64
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields maps accepted `ordering` query fields to columns.
var OrderingFields = map[string]string{
	"id":         "project_id",
	"title":      "title",
	"status":     "status",
	"created_at": "created_at",
}
