package proposal

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
)

// Status names a row of the proposal_statuses lookup table.
type Status string

const (
	StatusPending              Status = "Pending"
	StatusApproved             Status = "Approved"
	StatusRejected             Status = "Rejected"
	StatusRequiresModification Status = "Requires Modification"
)

// statusIDs mirrors the seeded proposal_statuses rows.
var statusIDs = map[Status]int16{
	StatusPending:              1,
	StatusApproved:             2,
	StatusRejected:             3,
	StatusRequiresModification: 4,
}

func (s Status) ID() int16 { return statusIDs[s] }

func (s Status) IsValid() bool {
	_, ok := statusIDs[s]
	return ok
}

// Editable reports whether the student may still change the proposal.
func (s Status) Editable() bool {
	return s == StatusPending || s == StatusRequiresModification
}

// CanTransitionTo encodes the proposal lifecycle:
// Pending -> Approved | Rejected | Requires Modification, Requires Modification -> Pending.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected || next == StatusRequiresModification
	case StatusRequiresModification:
		return next == StatusPending
	}
	return false
}

// Decision is a supervisor's verdict on a Pending proposal.
type Decision string

const (
	DecisionApprove             Decision = "approve"
	DecisionReject              Decision = "reject"
	DecisionRequestModification Decision = "request_modification"
)

func (d Decision) Status() (Status, bool) {
	switch d {
	case DecisionApprove:
		return StatusApproved, true
	case DecisionReject:
		return StatusRejected, true
	case DecisionRequestModification:
		return StatusRequiresModification, true
	}
	return "", false
}

type Proposal struct {
	ID               int64      `json:"proposal_id" db:"proposal_id"`
	StudentID        int64      `json:"student_id" db:"student_id"`
	StudentName      string     `json:"student_name" db:"student_name"`
	SubmittedTo      int64      `json:"submitted_to" db:"submitted_to"`
	SupervisorName   string     `json:"supervisor_name" db:"supervisor_name"`
	ProjectID        *int64     `json:"project_id" db:"project_id"`
	Title            string     `json:"title" db:"title"`
	Description      string     `json:"proposal_description" db:"proposal_description"`
	Type             string     `json:"type" db:"type"`
	Specialization   string     `json:"specialization" db:"specialization"`
	Outcome          string     `json:"outcome" db:"outcome"`
	StatusID         int16      `json:"status_id" db:"status_id"`
	Status           Status     `json:"status" db:"status_name"`
	ReviewerComments *string    `json:"reviewer_comments" db:"reviewer_comments"`
	SubmissionDate   time.Time  `json:"submission_date" db:"submission_date"` // UTC
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`           // UTC
	DecidedAt        *time.Time `json:"decided_at" db:"decided_at"`           // UTC
}

// History is one entry of a proposal's audit trail.
type History struct {
	ID         int64     `json:"history_id" db:"history_id"`
	ProposalID int64     `json:"proposal_id" db:"proposal_id"`
	OldStatus  *Status   `json:"old_status" db:"old_status"`
	NewStatus  Status    `json:"new_status" db:"new_status"`
	ChangedBy  int64     `json:"changed_by" db:"changed_by"`
	Comments   *string   `json:"comments" db:"comments"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"` // UTC
}

// Transition asks the storage to move a proposal from one of From to To.
type Transition struct {
	ProposalID int64
	From       []Status
	To         Status
	ChangedBy  int64
	Comments   *string
	At         time.Time
}

func (t Transition) Allows(s Status) bool {
	for _, from := range t.From {
		if s == from {
			return true
		}
	}
	return false
}

type NewProposal struct {
	SupervisorID   int64  `json:"supervisor_id" validate:"required,gt=0"`
	ProjectID      *int64 `json:"project_id" validate:"omitempty,gt=0"`
	Title          string `json:"title" validate:"required,notblank,max=200"`
	Description    string `json:"proposal_description" validate:"required,min=50"`
	Type           string `json:"type" validate:"required,notblank,max=50"`
	Specialization string `json:"specialization" validate:"required,notblank,max=100"`
	Outcome        string `json:"outcome" validate:"max=2000"`
}

func (np *NewProposal) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Description = core.CleanString(np.Description)
	np.Type = core.CleanString(np.Type)
	np.Specialization = core.CleanString(np.Specialization)
	np.Outcome = core.CleanString(np.Outcome)
	return validate.Struct(np)
}

// UpdateProposal overwrites the descriptive fields; the status is never touched.
type UpdateProposal struct {
	Title          string `json:"title" validate:"required,notblank,max=200"`
	Description    string `json:"proposal_description" validate:"required,min=50"`
	Type           string `json:"type" validate:"required,notblank,max=50"`
	Specialization string `json:"specialization" validate:"required,notblank,max=100"`
	Outcome        string `json:"outcome" validate:"max=2000"`
}

func (up *UpdateProposal) Validate(validate *validator.Validate) error {
	up.Title = core.CleanString(up.Title)
	up.Description = core.CleanString(up.Description)
	up.Type = core.CleanString(up.Type)
	up.Specialization = core.CleanString(up.Specialization)
	up.Outcome = core.CleanString(up.Outcome)
	return validate.Struct(up)
}

type DecisionInput struct {
	Decision Decision `json:"decision" validate:"required,oneof=approve reject request_modification"`
	Comments string   `json:"comments" validate:"max=2000"`
}

func (di *DecisionInput) Validate(validate *validator.Validate) error {
	di.Comments = core.CleanString(di.Comments)
	return validate.Struct(di)
}

type QueryFilter struct {
	StudentID   int64
	SubmittedTo int64
	Status      Status
}
