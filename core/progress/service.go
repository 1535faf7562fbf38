package progress

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
	ErrLogNotFound     = core.NewNotFoundError("progress log")
	ErrReportNotFound  = core.NewNotFoundError("progress report")
	ErrNoActiveProject = core.NewRuleError("an active project is required to submit progress")
	ErrNotSupervisor   = core.NewPermissionError("you do not supervise this project")
)

type (
	// Logs and reports are never deleted.
	Repository interface {
		CreateLog(ctx context.Context, l Log) (Log, error)
		CreateReport(ctx context.Context, r Report) (Report, error)
		GetLog(ctx context.Context, id int64) (Log, error)
		GetReport(ctx context.Context, id int64) (Report, error)
		// ListLogs & ListReports return items newest first.
		ListLogs(ctx context.Context, filter QueryFilter) ([]Log, error)
		ListReports(ctx context.Context, filter QueryFilter) ([]Report, error)
		// AppendLogFeedback & AppendReportFeedback append to existing feedback, never replace it.
		// A report is moved to Reviewed.
		AppendLogFeedback(ctx context.Context, fb Feedback) (Log, error)
		AppendReportFeedback(ctx context.Context, fb Feedback) (Report, error)
		// StaleStudents lists students holding an active project whose latest log
		// is older than before, or who never logged.
		StaleStudents(ctx context.Context, before time.Time) ([]StaleStudent, error)
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

func (svc *Service) activeProject(ctx context.Context, studentID int64) (project.ActiveProject, error) {
	active, err := svc.prjSvc.Active(ctx, studentID)
	if err != nil {
		if errors.Cause(err) == project.ErrNoActiveProject {
			return project.ActiveProject{}, ErrNoActiveProject
		}
		return project.ActiveProject{}, errors.Wrap(err, "finding active project")
	}
	return active, nil
}

func (svc *Service) notifySupervisors(ctx context.Context, projectID int64, event notification.Event, msg string) {
	if ids, err := svc.prjSvc.SupervisorIDs(ctx, projectID); err == nil {
		svc.notifier.NotifyMany(ctx, ids, event, msg)
	}
}

// SubmitLog attaches a progress log to the student's active project.
func (svc *Service) SubmitLog(ctx context.Context, studentID int64, nl NewLog) (Log, error) {
	if err := nl.Validate(svc.validate); err != nil {
		return Log{}, err
	}
	active, err := svc.activeProject(ctx, studentID)
	if err != nil {
		return Log{}, err
	}

	l, err := svc.repo.CreateLog(ctx, Log{
		ProjectID:      active.ID,
		StudentID:      studentID,
		Details:        nl.Details,
		SubmissionDate: time.Now().UTC(),
	})
	if err != nil {
		return Log{}, errors.Wrap(err, "creating progress log")
	}
	svc.notifySupervisors(ctx, active.ID, notification.EventProgressLogSubmitted,
		fmt.Sprintf("New progress log on project %q.", active.Title))
	return l, nil
}

// SubmitReport attaches a progress report to the student's active project.
func (svc *Service) SubmitReport(ctx context.Context, studentID int64, nr NewReport) (Report, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Report{}, err
	}
	active, err := svc.activeProject(ctx, studentID)
	if err != nil {
		return Report{}, err
	}

	r, err := svc.repo.CreateReport(ctx, Report{
		ProjectID:      active.ID,
		StudentID:      studentID,
		Title:          nr.Title,
		Details:        nr.Details,
		SubmissionDate: time.Now().UTC(),
		Status:         ReportSubmitted,
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "creating progress report")
	}
	svc.notifySupervisors(ctx, active.ID, notification.EventProgressReportSubmitted,
		fmt.Sprintf("New progress report %q on project %q.", r.Title, active.Title))
	return r, nil
}

func (svc *Service) ListStudentLogs(ctx context.Context, studentID int64) ([]Log, error) {
	return svc.listLogs(ctx, QueryFilter{StudentID: studentID})
}

func (svc *Service) ListStudentReports(ctx context.Context, studentID int64) ([]Report, error) {
	return svc.listReports(ctx, QueryFilter{StudentID: studentID})
}

func (svc *Service) checkSupervisor(ctx context.Context, supervisorID, projectID int64) error {
	ok, err := svc.prjSvc.IsSupervisor(ctx, projectID, supervisorID)
	if err != nil {
		return errors.Wrap(err, "checking project supervisor")
	}
	if !ok {
		return ErrNotSupervisor
	}
	return nil
}

// ListSupervisorLogs lists logs of the supervisor's projects, optionally of projectID only.
func (svc *Service) ListSupervisorLogs(ctx context.Context, supervisorID, projectID int64) ([]Log, error) {
	if projectID != 0 {
		if err := svc.checkSupervisor(ctx, supervisorID, projectID); err != nil {
			return nil, err
		}
	}
	return svc.listLogs(ctx, QueryFilter{SupervisorID: supervisorID, ProjectID: projectID})
}

// ListSupervisorReports lists reports of the supervisor's projects, optionally of projectID only.
func (svc *Service) ListSupervisorReports(ctx context.Context, supervisorID, projectID int64) ([]Report, error) {
	if projectID != 0 {
		if err := svc.checkSupervisor(ctx, supervisorID, projectID); err != nil {
			return nil, err
		}
	}
	return svc.listReports(ctx, QueryFilter{SupervisorID: supervisorID, ProjectID: projectID})
}

// CountUnreviewed returns how many logs & reports of the supervisor's projects await feedback.
func (svc *Service) CountUnreviewed(ctx context.Context, supervisorID int64) (logs, reports int, err error) {
	filter := QueryFilter{SupervisorID: supervisorID, Unreviewed: true}
	l, err := svc.repo.ListLogs(ctx, filter)
	if err != nil {
		return 0, 0, errors.Wrap(err, "listing logs")
	}
	r, err := svc.repo.ListReports(ctx, filter)
	if err != nil {
		return 0, 0, errors.Wrap(err, "listing reports")
	}
	return len(l), len(r), nil
}

func (svc *Service) listLogs(ctx context.Context, filter QueryFilter) ([]Log, error) {
	logs, err := svc.repo.ListLogs(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing logs")
	}
	if logs == nil {
		logs = []Log{}
	}
	return logs, nil
}

func (svc *Service) listReports(ctx context.Context, filter QueryFilter) ([]Report, error) {
	reports, err := svc.repo.ListReports(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing reports")
	}
	if reports == nil {
		reports = []Report{}
	}
	return reports, nil
}

// AddLogFeedback appends the owning supervisor's feedback to a log.
func (svc *Service) AddLogFeedback(ctx context.Context, supervisorID, logID int64, lf LogFeedback) (Log, error) {
	if err := lf.Validate(svc.validate); err != nil {
		return Log{}, err
	}
	l, err := svc.repo.GetLog(ctx, logID)
	if err != nil {
		return Log{}, err
	}
	if err = svc.checkSupervisor(ctx, supervisorID, l.ProjectID); err != nil {
		return Log{}, err
	}

	l, err = svc.repo.AppendLogFeedback(ctx, Feedback{
		ItemID: logID,
		By:     supervisorID,
		Text:   lf.Feedback,
		At:     time.Now().UTC(),
	})
	if err != nil {
		return Log{}, errors.Wrap(err, "appending log feedback")
	}
	svc.notifier.Notify(ctx, l.StudentID, notification.EventFeedbackReceived,
		fmt.Sprintf("Your supervisor left feedback on your progress log of %s.", l.SubmissionDate.Format("2 Jan 2006")))
	return l, nil
}

// AddReportFeedback appends the owning supervisor's feedback to a report and marks it Reviewed.
func (svc *Service) AddReportFeedback(ctx context.Context, supervisorID, reportID int64, rf ReportFeedback) (Report, error) {
	if err := rf.Validate(svc.validate); err != nil {
		return Report{}, err
	}
	r, err := svc.repo.GetReport(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	if err = svc.checkSupervisor(ctx, supervisorID, r.ProjectID); err != nil {
		return Report{}, err
	}

	r, err = svc.repo.AppendReportFeedback(ctx, Feedback{
		ItemID: reportID,
		By:     supervisorID,
		Text:   rf.Feedback,
		Grade:  core.StringPtr(rf.Grade),
		At:     time.Now().UTC(),
	})
	if err != nil {
		return Report{}, errors.Wrap(err, "appending report feedback")
	}
	svc.notifier.Notify(ctx, r.StudentID, notification.EventFeedbackReceived,
		fmt.Sprintf("Your supervisor reviewed your progress report %q.", r.Title))
	return r, nil
}

func (svc *Service) StaleStudents(ctx context.Context, olderThan time.Duration) ([]StaleStudent, error) {
	return svc.repo.StaleStudents(ctx, time.Now().UTC().Add(-olderThan))
}
