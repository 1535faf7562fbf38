package evaluation_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
	testutil "github.com/trezcool/fyp/tests"
)

type fixture struct {
	app       *testutil.App
	examiner  user.User
	examiner2 user.User
	moderator user.User
	project   project.Listing
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	f := fixture{
		app:       app,
		examiner:  app.CreateUser(t, "Prof Ken Examiner", "ken@uni.test", user.RoleExaminer),
		examiner2: app.CreateUser(t, "Prof Ann Examiner", "ann@uni.test", user.RoleExaminer),
		moderator: app.CreateUser(t, "Prof Lucy Moderator", "lucy@uni.test", user.RoleModerator),
		project:   app.CreateProject(t, sup.ID, "Campus Navigation App"),
	}
	_, err := app.Projects.AssignExaminer(ctx, f.project.ID, f.examiner.ID)
	require.NoError(t, err)
	_, err = app.Projects.AssignModerator(ctx, f.project.ID, f.moderator.ID)
	require.NoError(t, err)
	return f
}

func mark(v int) *int { return &v }

func TestService_Submit(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []struct {
		name       string
		examinerID int64
		projectID  int64
		ne         evaluation.NewEvaluation
		wantErr    error
	}{
		{"unknown project", f.examiner.ID, 9999, evaluation.NewEvaluation{Mark: mark(70), Comments: "Good."}, project.ErrNotFound},
		{"not the examiner", f.examiner2.ID, f.project.ID, evaluation.NewEvaluation{Mark: mark(70), Comments: "Good."}, evaluation.ErrNotExaminer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.app.Evaluations.Submit(ctx, tt.examinerID, tt.projectID, tt.ne)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
		})
	}

	invalid := []evaluation.NewEvaluation{
		{Comments: "Missing mark."},
		{Mark: mark(101), Comments: "Too high."},
		{Mark: mark(-1), Comments: "Too low."},
		{Mark: mark(50), Comments: "  "},
	}
	for _, ne := range invalid {
		_, err := f.app.Evaluations.Submit(ctx, f.examiner.ID, f.project.ID, ne)
		var vErrs validator.ValidationErrors
		assert.True(t, errors.As(err, &vErrs), "%+v", ne)
	}

	e, err := f.app.Evaluations.Submit(ctx, f.examiner.ID, f.project.ID, evaluation.NewEvaluation{Mark: mark(0), Comments: "Incomplete."})
	require.NoError(t, err)
	assert.Equal(t, 0, e.Mark)
	assert.Equal(t, evaluation.StatusSubmitted, e.Status)
	assert.Contains(t, f.app.Events(t, f.moderator.ID), notification.EventEvaluationSubmitted)

	_, err = f.app.Evaluations.Submit(ctx, f.examiner.ID, f.project.ID, evaluation.NewEvaluation{Mark: mark(60), Comments: "Again."})
	assert.Equal(t, evaluation.ErrAlreadyEvaluated, errors.Cause(err))

	evals, err := f.app.Evaluations.ListForExaminer(ctx, f.examiner.ID)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, f.project.Title, evals[0].ProjectTitle)

	evals, err = f.app.Evaluations.ListForExaminer(ctx, f.examiner2.ID)
	require.NoError(t, err)
	assert.NotNil(t, evals)
	assert.Empty(t, evals)
}

func TestService_Moderate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	other := f.app.CreateUser(t, "Prof Joe Moderator", "joe@uni.test", user.RoleModerator)
	e, err := f.app.Evaluations.Submit(ctx, f.examiner.ID, f.project.ID, evaluation.NewEvaluation{Mark: mark(72), Comments: "Good."})
	require.NoError(t, err)

	_, err = f.app.Evaluations.Moderate(ctx, f.moderator.ID, 9999, evaluation.Moderation{Mark: mark(70)})
	assert.Equal(t, evaluation.ErrNotFound, errors.Cause(err))

	_, err = f.app.Evaluations.Moderate(ctx, other.ID, e.ID, evaluation.Moderation{Mark: mark(70)})
	assert.Equal(t, evaluation.ErrNotModerator, errors.Cause(err))

	_, err = f.app.Evaluations.Moderate(ctx, f.moderator.ID, e.ID, evaluation.Moderation{})
	var vErrs validator.ValidationErrors
	assert.True(t, errors.As(err, &vErrs))

	got, err := f.app.Evaluations.Moderate(ctx, f.moderator.ID, e.ID, evaluation.Moderation{Mark: mark(70), Comments: "Slightly generous."})
	require.NoError(t, err)
	assert.Equal(t, evaluation.StatusModerated, got.Status)
	require.NotNil(t, got.ModeratedMark)
	assert.Equal(t, 70, *got.ModeratedMark)
	assert.Equal(t, 72, got.Mark, "original mark is kept")
	require.NotNil(t, got.ModeratorID)
	assert.Equal(t, f.moderator.ID, *got.ModeratorID)
	assert.NotNil(t, got.ModeratedAt)
	assert.Contains(t, f.app.Events(t, f.examiner.ID), notification.EventEvaluationModerated)

	_, err = f.app.Evaluations.Moderate(ctx, f.moderator.ID, e.ID, evaluation.Moderation{Mark: mark(60)})
	assert.Equal(t, evaluation.ErrAlreadyModerated, errors.Cause(err))

	evals, err := f.app.Evaluations.ListForModerator(ctx, f.moderator.ID)
	require.NoError(t, err)
	assert.Len(t, evals, 1)

	evals, err = f.app.Evaluations.ListForModerator(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, evals)
}

func TestService_AssignedProjects(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	prjs, err := f.app.Evaluations.ProjectsForExaminer(ctx, f.examiner.ID)
	require.NoError(t, err)
	require.Len(t, prjs, 1)
	assert.Equal(t, f.project.ID, prjs[0].ID)

	prjs, err = f.app.Evaluations.ProjectsForExaminer(ctx, f.examiner2.ID)
	require.NoError(t, err)
	assert.Empty(t, prjs)

	prjs, err = f.app.Evaluations.ProjectsForModerator(ctx, f.moderator.ID)
	require.NoError(t, err)
	assert.Len(t, prjs, 1)
}
