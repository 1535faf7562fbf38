package project

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/user"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("project")
	ErrNoActiveProject     = core.NewNotFoundError("active project")
	ErrActiveProjectExists = core.NewRuleError("student already has an active project")
	ErrProjectUnavailable  = core.NewRuleError("project is not available")
	errInvalidStatus       = core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be one of Active, Archived"})
)

type (
	Repository interface {
		// CreateProject inserts the project and links it to supervisorID, atomically.
		CreateProject(ctx context.Context, supervisorID int64, p Project) (Listing, error)
		GetProject(ctx context.Context, id int64) (Project, error)
		// QueryProjects returns one Listing per (project, supervisor) pair.
		QueryProjects(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Listing, error)
		// AvailableProjects lists Active projects that no student holds
		// and that are not linked to an Approved proposal of any student.
		AvailableProjects(ctx context.Context) ([]Listing, error)
		// AssignStudent makes projectID the student's active project.
		// It fails with ErrActiveProjectExists or ErrProjectUnavailable; check & insert are atomic.
		AssignStudent(ctx context.Context, studentID, projectID int64) (Assignment, error)
		ActiveProject(ctx context.Context, studentID int64) (ActiveProject, error)
		// UpdateStatus ends the project's active assignments when archiving.
		UpdateStatus(ctx context.Context, id int64, status Status) (Project, error)
		SetExaminer(ctx context.Context, id, examinerID int64) (Project, error)
		SetModerator(ctx context.Context, id, moderatorID int64) (Project, error)
		SupervisorIDs(ctx context.Context, projectID int64) ([]int64, error)
		// ActiveStudentID returns 0 when nobody holds the project.
		ActiveStudentID(ctx context.Context, projectID int64) (int64, error)
	}

	Service struct {
		repo     Repository
		usrSvc   *user.Service
		notifier notification.Notifier
		validate *validator.Validate
	}
)

func NewService(repo Repository, usrSvc *user.Service, notifier notification.Notifier, validate *validator.Validate) *Service {
	return &Service{repo: repo, usrSvc: usrSvc, notifier: notifier, validate: validate}
}

// Create lets a supervisor publish a project idea directly.
func (svc *Service) Create(ctx context.Context, supervisorID int64, np NewProject) (Listing, error) {
	if err := np.Validate(svc.validate); err != nil {
		return Listing{}, err
	}
	now := time.Now().UTC()
	listing, err := svc.repo.CreateProject(ctx, supervisorID, Project{
		Title:          np.Title,
		Description:    np.Description,
		Type:           np.Type,
		Specialization: np.Specialization,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Listing{}, errors.Wrap(err, "creating project")
	}
	return listing, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Project, error) {
	return svc.repo.GetProject(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Listing, error) {
	if filter != nil {
		filter.Clean()
		if filter.Status != "" && !filter.Status.IsValid() {
			return nil, errInvalidStatus
		}
	}
	listings, err := svc.repo.QueryProjects(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying projects")
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}

func (svc *Service) ListForSupervisor(ctx context.Context, supervisorID int64) ([]Listing, error) {
	return svc.Query(ctx, &QueryFilter{SupervisorID: supervisorID}, []core.DBOrdering{{Field: "created_at"}})
}

func (svc *Service) Available(ctx context.Context) ([]Listing, error) {
	listings, err := svc.repo.AvailableProjects(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing available projects")
	}
	if listings == nil {
		listings = []Listing{}
	}
	return listings, nil
}

// Select assigns an available project to a student holding no active project.
func (svc *Service) Select(ctx context.Context, studentID, projectID int64) (Assignment, error) {
	prj, err := svc.repo.GetProject(ctx, projectID)
	if err != nil {
		return Assignment{}, err
	}
	asg, err := svc.repo.AssignStudent(ctx, studentID, projectID)
	if err != nil {
		return Assignment{}, err
	}

	if supIDs, err := svc.repo.SupervisorIDs(ctx, projectID); err == nil {
		svc.notifier.NotifyMany(ctx, supIDs, notification.EventProjectSelected,
			fmt.Sprintf("Project %q was selected by a student.", prj.Title))
	}
	return asg, nil
}

func (svc *Service) Active(ctx context.Context, studentID int64) (ActiveProject, error) {
	return svc.repo.ActiveProject(ctx, studentID)
}

func (svc *Service) UpdateStatus(ctx context.Context, id int64, status Status) (Project, error) {
	if !status.IsValid() {
		return Project{}, errInvalidStatus
	}

	var studentID int64
	if status == StatusArchived {
		var err error
		if studentID, err = svc.repo.ActiveStudentID(ctx, id); err != nil {
			return Project{}, errors.Wrap(err, "finding project holder")
		}
	}

	prj, err := svc.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return Project{}, err
	}
	if studentID != 0 {
		svc.notifier.Notify(ctx, studentID, notification.EventProjectArchived,
			fmt.Sprintf("Project %q was archived.", prj.Title))
	}
	return prj, nil
}

func (svc *Service) AssignExaminer(ctx context.Context, id, examinerID int64) (Project, error) {
	if _, err := svc.usrSvc.RequireRole(ctx, examinerID, user.RoleExaminer); err != nil {
		return Project{}, user.RoleFieldError(err, "examiner_id", user.RoleExaminer)
	}
	prj, err := svc.repo.SetExaminer(ctx, id, examinerID)
	if err != nil {
		return Project{}, err
	}
	svc.notifier.Notify(ctx, examinerID, notification.EventExaminerAssigned,
		fmt.Sprintf("You were assigned to examine project %q.", prj.Title))
	return prj, nil
}

func (svc *Service) AssignModerator(ctx context.Context, id, moderatorID int64) (Project, error) {
	if _, err := svc.usrSvc.RequireRole(ctx, moderatorID, user.RoleModerator); err != nil {
		return Project{}, user.RoleFieldError(err, "moderator_id", user.RoleModerator)
	}
	prj, err := svc.repo.SetModerator(ctx, id, moderatorID)
	if err != nil {
		return Project{}, err
	}
	svc.notifier.Notify(ctx, moderatorID, notification.EventModeratorAssigned,
		fmt.Sprintf("You were assigned to moderate project %q.", prj.Title))
	return prj, nil
}

func (svc *Service) IsSupervisor(ctx context.Context, projectID, supervisorID int64) (bool, error) {
	ids, err := svc.repo.SupervisorIDs(ctx, projectID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == supervisorID {
			return true, nil
		}
	}
	return false, nil
}

func (svc *Service) SupervisorIDs(ctx context.Context, projectID int64) ([]int64, error) {
	return svc.repo.SupervisorIDs(ctx, projectID)
}
