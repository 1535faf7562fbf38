package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/project"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("evaluation")
	ErrAlreadyEvaluated = core.NewRuleError("project already evaluated by this examiner")
	ErrAlreadyModerated = core.NewRuleError("evaluation already moderated")
	ErrNotExaminer      = core.NewPermissionError("you are not the examiner of this project")
	ErrNotModerator     = core.NewPermissionError("you are not the moderator of this project")
)

type (
	Repository interface {
		// CreateEvaluation fails with ErrAlreadyEvaluated for a second (project, examiner) evaluation.
		CreateEvaluation(ctx context.Context, e Evaluation) (Evaluation, error)
		GetEvaluation(ctx context.Context, id int64) (Evaluation, error)
		ListEvaluations(ctx context.Context, filter QueryFilter) ([]Evaluation, error)
		// ModerateEvaluation moves a Submitted evaluation to Moderated, else ErrAlreadyModerated.
		ModerateEvaluation(ctx context.Context, e Evaluation) (Evaluation, error)
	}

	Service struct {
		repo     Repository
		prjSvc   *project.Service
		notifier notification.Notifier
		validate *validator.Validate
	}
)

func NewService(repo Repository, prjSvc *project.Service, notifier notification.Notifier, validate *validator.Validate) *Service {
	return &Service{repo: repo, prjSvc: prjSvc, notifier: notifier, validate: validate}
}

func (svc *Service) ProjectsForExaminer(ctx context.Context, examinerID int64) ([]project.Listing, error) {
	return svc.prjSvc.Query(ctx, &project.QueryFilter{ExaminerID: examinerID}, nil)
}

func (svc *Service) ProjectsForModerator(ctx context.Context, moderatorID int64) ([]project.Listing, error) {
	return svc.prjSvc.Query(ctx, &project.QueryFilter{ModeratorID: moderatorID}, nil)
}

func (svc *Service) ListForExaminer(ctx context.Context, examinerID int64) ([]Evaluation, error) {
	return svc.list(ctx, QueryFilter{ExaminerID: examinerID})
}

func (svc *Service) ListForModerator(ctx context.Context, moderatorID int64) ([]Evaluation, error) {
	return svc.list(ctx, QueryFilter{ModeratorID: moderatorID})
}

func (svc *Service) list(ctx context.Context, filter QueryFilter) ([]Evaluation, error) {
	evals, err := svc.repo.ListEvaluations(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing evaluations")
	}
	if evals == nil {
		evals = []Evaluation{}
	}
	return evals, nil
}

// Submit records the mark of the project's examiner.
func (svc *Service) Submit(ctx context.Context, examinerID, projectID int64, ne NewEvaluation) (Evaluation, error) {
	prj, err := svc.prjSvc.Get(ctx, projectID)
	if err != nil {
		return Evaluation{}, err
	}
	if prj.ExaminerID == nil || *prj.ExaminerID != examinerID {
		return Evaluation{}, ErrNotExaminer
	}
	if err = ne.Validate(svc.validate); err != nil {
		return Evaluation{}, err
	}

	e, err := svc.repo.CreateEvaluation(ctx, Evaluation{
		ProjectID:   projectID,
		ExaminerID:  examinerID,
		Mark:        *ne.Mark,
		Comments:    ne.Comments,
		Status:      StatusSubmitted,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return Evaluation{}, err
	}
	if prj.ModeratorID != nil {
		svc.notifier.Notify(ctx, *prj.ModeratorID, notification.EventEvaluationSubmitted,
			fmt.Sprintf("Project %q was evaluated and awaits moderation.", prj.Title))
	}
	return e, nil
}

// Moderate lets the project's moderator confirm or adjust a submitted mark.
func (svc *Service) Moderate(ctx context.Context, moderatorID, evaluationID int64, m Moderation) (Evaluation, error) {
	e, err := svc.repo.GetEvaluation(ctx, evaluationID)
	if err != nil {
		return Evaluation{}, err
	}
	prj, err := svc.prjSvc.Get(ctx, e.ProjectID)
	if err != nil {
		return Evaluation{}, errors.Wrap(err, "finding evaluated project")
	}
	if prj.ModeratorID == nil || *prj.ModeratorID != moderatorID {
		return Evaluation{}, ErrNotModerator
	}
	if e.Status != StatusSubmitted {
		return Evaluation{}, ErrAlreadyModerated
	}
	if err = m.Validate(svc.validate); err != nil {
		return Evaluation{}, err
	}

	now := time.Now().UTC()
	e.Status = StatusModerated
	e.ModeratorID = &moderatorID
	e.ModeratedMark = m.Mark
	e.ModerationComments = core.StringPtr(m.Comments)
	e.ModeratedAt = &now

	if e, err = svc.repo.ModerateEvaluation(ctx, e); err != nil {
		return Evaluation{}, err
	}
	svc.notifier.Notify(ctx, e.ExaminerID, notification.EventEvaluationModerated,
		fmt.Sprintf("Your evaluation of project %q was moderated.", prj.Title))
	return e, nil
}
