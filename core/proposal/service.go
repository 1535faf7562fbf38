package proposal

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("proposal")
	ErrNotEditable       = core.NewRuleError("proposal can only be changed while Pending or Requires Modification")
	ErrInvalidTransition = core.NewRuleError("proposal status does not allow this action")
	ErrNotReviewer       = core.NewPermissionError("proposal was not submitted to you")
	errInvalidStatus     = core.NewValidationError(nil, core.FieldError{
		Field: "status",
		Error: "status must be one of Pending, Approved, Rejected, Requires Modification",
	})
)

type (
	Repository interface {
		// CreateProposal inserts a Pending proposal and its first History entry.
		// It fails with project.ErrActiveProjectExists if the student holds an active project;
		// the check runs under the student's row lock, in the insert transaction.
		CreateProposal(ctx context.Context, p Proposal) (Proposal, error)
		GetProposal(ctx context.Context, id int64) (Proposal, error)
		// ListProposals returns proposals newest first.
		ListProposals(ctx context.Context, filter QueryFilter) ([]Proposal, error)
		// UpdateProposal overwrites descriptive fields if the status is still editable, else ErrNotEditable.
		UpdateProposal(ctx context.Context, p Proposal) (Proposal, error)
		// ApplyTransition moves the proposal to t.To if its current status is in t.From,
		// else ErrInvalidTransition, and records History.
		// Approving also links (or creates) the project, associates it with the supervisor
		// and makes it the student's active project, all in the same transaction.
		ApplyTransition(ctx context.Context, t Transition) (Proposal, error)
		ListHistory(ctx context.Context, proposalID int64) ([]History, error)
	}

	Service struct {
		repo     Repository
		usrSvc   *user.Service
		prjSvc   *project.Service
		notifier notification.Notifier
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

func NewService(
	repo Repository,
	usrSvc *user.Service,
	prjSvc *project.Service,
	notifier notification.Notifier,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:     repo,
		usrSvc:   usrSvc,
		prjSvc:   prjSvc,
		notifier: notifier,
		mailSvc:  mailSvc,
		validate: validate,
	}
}

// Submit files a Pending proposal from studentID to a supervisor.
func (svc *Service) Submit(ctx context.Context, studentID int64, np NewProposal) (Proposal, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Proposal{}, err
	}
	sup, err := svc.usrSvc.RequireRole(ctx, np.SupervisorID, user.RoleSupervisor)
	if err != nil {
		return Proposal{}, user.RoleFieldError(err, "supervisor_id", user.RoleSupervisor)
	}
	if np.ProjectID != nil {
		prj, err := svc.prjSvc.Get(ctx, *np.ProjectID)
		if err != nil && !core.IsNotFound(err) {
			return Proposal{}, errors.Wrap(err, "finding project")
		}
		if err != nil || prj.Status != project.StatusActive {
			return Proposal{}, core.NewValidationError(nil, core.FieldError{Field: "project_id", Error: "project not found or archived"})
		}
	}

	now := time.Now().UTC()
	p, err := svc.repo.CreateProposal(ctx, Proposal{
		StudentID:      studentID,
		SubmittedTo:    sup.ID,
		ProjectID:      np.ProjectID,
		Title:          np.Title,
		Description:    np.Description,
		Type:           np.Type,
		Specialization: np.Specialization,
		Outcome:        np.Outcome,
		StatusID:       StatusPending.ID(),
		Status:         StatusPending,
		SubmissionDate: now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Proposal{}, err
	}

	svc.notifier.Notify(ctx, sup.ID, notification.EventProposalSubmitted,
		fmt.Sprintf("New proposal %q submitted for your review.", p.Title))
	return p, nil
}

// getOwned hides proposals of other students.
func (svc *Service) getOwned(ctx context.Context, studentID, id int64) (Proposal, error) {
	p, err := svc.repo.GetProposal(ctx, id)
	if err != nil {
		return Proposal{}, err
	}
	if p.StudentID != studentID {
		return Proposal{}, ErrNotFound
	}
	return p, nil
}

// Update lets the owner rework a Pending or Requires Modification proposal.
func (svc *Service) Update(ctx context.Context, studentID, id int64, up UpdateProposal) (Proposal, error) {
	p, err := svc.getOwned(ctx, studentID, id)
	if err != nil {
		return Proposal{}, err
	}
	if !p.Status.Editable() {
		return Proposal{}, ErrNotEditable
	}
	if err = up.Validate(svc.validate); err != nil {
		return Proposal{}, err
	}

	p.Title = up.Title
	p.Description = up.Description
	p.Type = up.Type
	p.Specialization = up.Specialization
	p.Outcome = up.Outcome
	p.UpdatedAt = time.Now().UTC()

	if p, err = svc.repo.UpdateProposal(ctx, p); err != nil {
		return Proposal{}, err
	}
	svc.notifier.Notify(ctx, p.SubmittedTo, notification.EventProposalUpdated,
		fmt.Sprintf("Proposal %q was updated by the student.", p.Title))
	return p, nil
}

// Resubmit sends a Requires Modification proposal back for review.
func (svc *Service) Resubmit(ctx context.Context, studentID, id int64) (Proposal, error) {
	if _, err := svc.getOwned(ctx, studentID, id); err != nil {
		return Proposal{}, err
	}
	p, err := svc.repo.ApplyTransition(ctx, Transition{
		ProposalID: id,
		From:       []Status{StatusRequiresModification},
		To:         StatusPending,
		ChangedBy:  studentID,
		At:         time.Now().UTC(),
	})
	if err != nil {
		return Proposal{}, err
	}
	svc.notifier.Notify(ctx, p.SubmittedTo, notification.EventProposalResubmitted,
		fmt.Sprintf("Proposal %q was resubmitted for your review.", p.Title))
	return p, nil
}

// Status returns one of the student's proposals.
func (svc *Service) Status(ctx context.Context, studentID, id int64) (Proposal, error) {
	return svc.getOwned(ctx, studentID, id)
}

func (svc *Service) ListForStudent(ctx context.Context, studentID int64) ([]Proposal, error) {
	return svc.list(ctx, QueryFilter{StudentID: studentID})
}

func (svc *Service) ListForSupervisor(ctx context.Context, supervisorID int64, status Status) ([]Proposal, error) {
	if status != "" && !status.IsValid() {
		return nil, errInvalidStatus
	}
	return svc.list(ctx, QueryFilter{SubmittedTo: supervisorID, Status: status})
}

func (svc *Service) list(ctx context.Context, filter QueryFilter) ([]Proposal, error) {
	proposals, err := svc.repo.ListProposals(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing proposals")
	}
	if proposals == nil {
		proposals = []Proposal{}
	}
	return proposals, nil
}

// getReviewed returns a proposal submitted to supervisorID.
func (svc *Service) getReviewed(ctx context.Context, supervisorID, id int64) (Proposal, error) {
	p, err := svc.repo.GetProposal(ctx, id)
	if err != nil {
		return Proposal{}, err
	}
	if p.SubmittedTo != supervisorID {
		return Proposal{}, ErrNotReviewer
	}
	return p, nil
}

// Decide records the supervisor's decision on a Pending proposal.
// Approval makes the proposal's project the student's active project.
func (svc *Service) Decide(ctx context.Context, supervisorID, id int64, di DecisionInput) (Proposal, error) {
	if err := di.Validate(svc.validate); err != nil {
		return Proposal{}, err
	}
	if _, err := svc.getReviewed(ctx, supervisorID, id); err != nil {
		return Proposal{}, err
	}

	to, _ := di.Decision.Status()
	p, err := svc.repo.ApplyTransition(ctx, Transition{
		ProposalID: id,
		From:       []Status{StatusPending},
		To:         to,
		ChangedBy:  supervisorID,
		Comments:   core.StringPtr(di.Comments),
		At:         time.Now().UTC(),
	})
	if err != nil {
		return Proposal{}, err
	}

	svc.notifier.Notify(ctx, p.StudentID, notification.EventProposalDecision,
		fmt.Sprintf("Your proposal %q is now %s.", p.Title, p.Status))
	svc.sendDecisionMail(ctx, p)
	return p, nil
}

func (svc *Service) History(ctx context.Context, supervisorID, id int64) ([]History, error) {
	if _, err := svc.getReviewed(ctx, supervisorID, id); err != nil {
		return nil, err
	}
	hist, err := svc.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "listing proposal history")
	}
	if hist == nil {
		hist = []History{}
	}
	return hist, nil
}

func (svc *Service) sendDecisionMail(ctx context.Context, p Proposal) {
	student, err := svc.usrSvc.GetByID(ctx, p.StudentID)
	if err != nil {
		return
	}
	var comments string
	if p.ReviewerComments != nil {
		comments = *p.ReviewerComments
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.Name, Address: student.Email}},
		Subject:      "Decision on your proposal",
		TemplateName: "proposal_decision",
		TemplateData: map[string]interface{}{
			"StudentName":    student.Name,
			"Title":          p.Title,
			"SupervisorName": p.SupervisorName,
			"Status":         string(p.Status),
			"Comments":       comments,
			"ProposalID":     p.ID,
		},
	})
}
