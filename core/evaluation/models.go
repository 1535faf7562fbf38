package evaluation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

type Status string

const (
	StatusSubmitted Status = "Submitted"
	StatusModerated Status = "Moderated"
)

type Evaluation struct {
	ID                 int64      `json:"evaluation_id" db:"evaluation_id"`
	ProjectID          int64      `json:"project_id" db:"project_id"`
	ProjectTitle       string     `json:"project_title" db:"project_title"`
	ExaminerID         int64      `json:"examiner_id" db:"examiner_id"`
	Mark               int        `json:"mark" db:"mark"`
	Comments           string     `json:"comments" db:"comments"`
	Status             Status     `json:"status" db:"status"`
	ModeratorID        *int64     `json:"moderator_id" db:"moderator_id"`
	ModeratedMark      *int       `json:"moderated_mark" db:"moderated_mark"`
	ModerationComments *string    `json:"moderation_comments" db:"moderation_comments"`
	SubmittedAt        time.Time  `json:"submitted_at" db:"submitted_at"` // UTC
	ModeratedAt        *time.Time `json:"moderated_at" db:"moderated_at"` // UTC
}

// NewEvaluation is an examiner's mark for a project; Mark is a pointer so 0 is a valid mark.
type NewEvaluation struct {
	Mark     *int   `json:"mark" validate:"required,min=0,max=100"`
	Comments string `json:"comments" validate:"required,notblank,max=5000"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.Comments = core.CleanString(ne.Comments)
	return validate.Struct(ne)
}

type Moderation struct {
	Mark     *int   `json:"moderated_mark" validate:"required,min=0,max=100"`
	Comments string `json:"moderation_comments" validate:"max=5000"`
}

func (m *Moderation) Validate(validate *validator.Validate) error {
	m.Comments = core.CleanString(m.Comments)
	return validate.Struct(m)
}

type QueryFilter struct {
	ProjectID   int64
	ExaminerID  int64
	ModeratorID int64 // the project's moderator
	Status      Status
}
