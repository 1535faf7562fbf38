package notification

import "time"

// Event names what happened. It is stored in Notification.EventName.
type Event string

const (
	EventProposalSubmitted       Event = "proposal_submitted"
	EventProposalUpdated         Event = "proposal_updated"
	EventProposalResubmitted     Event = "proposal_resubmitted"
	EventProposalDecision        Event = "proposal_decision"
	EventProjectSelected         Event = "project_selected"
	EventProjectArchived         Event = "project_archived"
	EventProgressLogSubmitted    Event = "progress_log_submitted"
	EventProgressReportSubmitted Event = "progress_report_submitted"
	EventFeedbackReceived        Event = "feedback_received"
	EventProgressReminder        Event = "progress_reminder"
	EventExaminerAssigned        Event = "examiner_assigned"
	EventModeratorAssigned       Event = "moderator_assigned"
	EventEvaluationSubmitted     Event = "evaluation_submitted"
	EventEvaluationModerated     Event = "evaluation_moderated"
)

type Notification struct {
	ID        int64     `json:"notification_id" db:"notification_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	EventName Event     `json:"event_name" db:"event_name"`
	Message   string    `json:"message" db:"message"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"` // UTC
	IsRead    bool      `json:"is_read" db:"is_read"`
}

type QueryFilter struct {
	UserID     int64
	UnreadOnly bool
	Limit      int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (qf *QueryFilter) Clean() {
	if qf.Limit <= 0 {
		qf.Limit = DefaultLimit
	} else if qf.Limit > MaxLimit {
		qf.Limit = MaxLimit
	}
}
