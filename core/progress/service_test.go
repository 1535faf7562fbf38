package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
	testutil "github.com/trezcool/fyp/tests"
)

const (
	logDetails    = "Finished the literature review and drafted chapter two."
	reportDetails = "Chapter two is complete. The prototype reads sensor data and stores it in the cloud backend."
)

type fixture struct {
	app        *testutil.App
	student    user.User
	supervisor user.User
	other      user.User
	project    project.Listing
}

func setup(t *testing.T) fixture {
	t.Helper()

	app := testutil.NewApp(t)
	f := fixture{
		app:        app,
		student:    app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent),
		supervisor: app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor),
		other:      app.CreateUser(t, "Dr Peter Mwangi", "peter@uni.test", user.RoleSupervisor),
	}
	f.project = app.CreateProject(t, f.supervisor.ID, "Campus Navigation App")
	_, err := app.Projects.Select(context.Background(), f.student.ID, f.project.ID)
	require.NoError(t, err)
	return f
}

func TestService_SubmitLog(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	idle := f.app.CreateUser(t, "Brian Kamau", "brian@uni.test", user.RoleStudent)

	_, err := f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: "too short"})
	assert.Error(t, err)

	_, err = f.app.Progress.SubmitLog(ctx, idle.ID, progress.NewLog{Details: logDetails})
	assert.Equal(t, progress.ErrNoActiveProject, errors.Cause(err))

	l, err := f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: "  " + logDetails + "  "})
	require.NoError(t, err)
	assert.Equal(t, f.project.ID, l.ProjectID)
	assert.Equal(t, logDetails, l.Details)
	assert.Nil(t, l.Feedback)
	assert.Contains(t, f.app.Events(t, f.supervisor.ID), notification.EventProgressLogSubmitted)

	logs, err := f.app.Progress.ListStudentLogs(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, f.project.Title, logs[0].ProjectTitle)
	assert.Equal(t, f.student.Name, logs[0].StudentName)

	logs, err = f.app.Progress.ListStudentLogs(ctx, idle.ID)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}

func TestService_SubmitReport(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.app.Progress.SubmitReport(ctx, f.student.ID, progress.NewReport{Title: " ", Details: reportDetails})
	assert.Error(t, err)

	r, err := f.app.Progress.SubmitReport(ctx, f.student.ID, progress.NewReport{Title: "Midterm Report", Details: reportDetails})
	require.NoError(t, err)
	assert.Equal(t, progress.ReportSubmitted, r.Status)
	assert.Nil(t, r.Grade)
	assert.Contains(t, f.app.Events(t, f.supervisor.ID), notification.EventProgressReportSubmitted)
}

func TestService_AddLogFeedback(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l, err := f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: logDetails})
	require.NoError(t, err)

	_, err = f.app.Progress.AddLogFeedback(ctx, f.other.ID, l.ID, progress.LogFeedback{Feedback: "Good work."})
	assert.Equal(t, progress.ErrNotSupervisor, errors.Cause(err))

	_, err = f.app.Progress.AddLogFeedback(ctx, f.supervisor.ID, 9999, progress.LogFeedback{Feedback: "Good work."})
	assert.Equal(t, progress.ErrLogNotFound, errors.Cause(err))

	_, err = f.app.Progress.AddLogFeedback(ctx, f.supervisor.ID, l.ID, progress.LogFeedback{Feedback: "   "})
	assert.Error(t, err)

	l, err = f.app.Progress.AddLogFeedback(ctx, f.supervisor.ID, l.ID, progress.LogFeedback{Feedback: "Good work."})
	require.NoError(t, err)
	require.NotNil(t, l.Feedback)
	assert.Equal(t, "Good work.", *l.Feedback)
	require.NotNil(t, l.FeedbackBy)
	assert.Equal(t, f.supervisor.ID, *l.FeedbackBy)
	assert.Contains(t, f.app.Events(t, f.student.ID), notification.EventFeedbackReceived)

	l, err = f.app.Progress.AddLogFeedback(ctx, f.supervisor.ID, l.ID, progress.LogFeedback{Feedback: "Add references."})
	require.NoError(t, err)
	assert.Equal(t, "Good work.\n\nAdd references.", *l.Feedback, "feedback is appended")
}

func TestService_AddReportFeedback(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	r, err := f.app.Progress.SubmitReport(ctx, f.student.ID, progress.NewReport{Title: "Midterm Report", Details: reportDetails})
	require.NoError(t, err)

	_, err = f.app.Progress.AddReportFeedback(ctx, f.other.ID, r.ID, progress.ReportFeedback{Feedback: "Fine."})
	assert.Equal(t, progress.ErrNotSupervisor, errors.Cause(err))

	_, err = f.app.Progress.AddReportFeedback(ctx, f.supervisor.ID, 9999, progress.ReportFeedback{Feedback: "Fine."})
	assert.Equal(t, progress.ErrReportNotFound, errors.Cause(err))

	r, err = f.app.Progress.AddReportFeedback(ctx, f.supervisor.ID, r.ID, progress.ReportFeedback{Feedback: "Solid.", Grade: "B+"})
	require.NoError(t, err)
	assert.Equal(t, progress.ReportReviewed, r.Status)
	require.NotNil(t, r.Grade)
	assert.Equal(t, "B+", *r.Grade)

	r, err = f.app.Progress.AddReportFeedback(ctx, f.supervisor.ID, r.ID, progress.ReportFeedback{Feedback: "Fix typos."})
	require.NoError(t, err)
	assert.Equal(t, "Solid.\n\nFix typos.", *r.Feedback)
	require.NotNil(t, r.Grade)
	assert.Equal(t, "B+", *r.Grade, "grade is kept when none is given")
}

func TestService_SupervisorLists(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	l, err := f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: logDetails})
	require.NoError(t, err)
	_, err = f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: logDetails})
	require.NoError(t, err)
	_, err = f.app.Progress.SubmitReport(ctx, f.student.ID, progress.NewReport{Title: "Midterm Report", Details: reportDetails})
	require.NoError(t, err)

	logs, err := f.app.Progress.ListSupervisorLogs(ctx, f.supervisor.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	logs, err = f.app.Progress.ListSupervisorLogs(ctx, f.other.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = f.app.Progress.ListSupervisorLogs(ctx, f.other.ID, f.project.ID)
	assert.Equal(t, progress.ErrNotSupervisor, errors.Cause(err))

	_, err = f.app.Progress.ListSupervisorReports(ctx, f.other.ID, f.project.ID)
	assert.Equal(t, progress.ErrNotSupervisor, errors.Cause(err))

	reports, err := f.app.Progress.ListSupervisorReports(ctx, f.supervisor.ID, f.project.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 1)

	nLogs, nReports, err := f.app.Progress.CountUnreviewed(ctx, f.supervisor.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, nLogs)
	assert.Equal(t, 1, nReports)

	_, err = f.app.Progress.AddLogFeedback(ctx, f.supervisor.ID, l.ID, progress.LogFeedback{Feedback: "Good work."})
	require.NoError(t, err)
	nLogs, _, err = f.app.Progress.CountUnreviewed(ctx, f.supervisor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, nLogs)
}

func TestService_StaleStudents(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	stale, err := f.app.Progress.StaleStudents(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1, "students who never logged are stale")
	assert.Equal(t, f.student.ID, stale[0].StudentID)
	assert.Equal(t, f.project.Title, stale[0].ProjectTitle)
	assert.Nil(t, stale[0].LastLogAt)

	_, err = f.app.Progress.SubmitLog(ctx, f.student.ID, progress.NewLog{Details: logDetails})
	require.NoError(t, err)

	stale, err = f.app.Progress.StaleStudents(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stale)

	// a negative window puts the cutoff in the future
	stale, err = f.app.Progress.StaleStudents(ctx, -time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.NotNil(t, stale[0].LastLogAt)
}

func TestAppendFeedback(t *testing.T) {
	empty := ""
	prev := "first"
	assert.Equal(t, "entry", progress.AppendFeedback(nil, "entry"))
	assert.Equal(t, "entry", progress.AppendFeedback(&empty, "entry"))
	assert.Equal(t, "first\n\nentry", progress.AppendFeedback(&prev, "entry"))
}
