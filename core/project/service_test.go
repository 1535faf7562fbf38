package project_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
	testutil "github.com/trezcool/fyp/tests"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)

	tests := []struct {
		name    string
		np      project.NewProject
		wantErr bool
	}{
		{"missing title", project.NewProject{Description: "Long enough project description.", Type: "Research", Specialization: "AI"}, true},
		{"blank title", project.NewProject{Title: "   ", Description: "Long enough project description.", Type: "Research", Specialization: "AI"}, true},
		{"short description", project.NewProject{Title: "Chatbot", Description: "short", Type: "Research", Specialization: "AI"}, true},
		{"valid", project.NewProject{Title: " Chatbot ", Description: "Long enough project description.", Type: "Research", Specialization: "AI"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Projects.Create(ctx, sup.ID, tt.np)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Chatbot", got.Title)
			assert.Equal(t, project.StatusActive, got.Status)
			assert.Equal(t, sup.ID, got.SupervisorID)
			assert.Equal(t, sup.Name, got.SupervisorName)
			assert.Equal(t, sup.Email, got.SupervisorEmail)
		})
	}
}

func TestService_Select(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	st1 := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	st2 := app.CreateUser(t, "Brian Kamau", "brian@uni.test", user.RoleStudent)
	prj1 := app.CreateProject(t, sup.ID, "Campus Navigation App")
	prj2 := app.CreateProject(t, sup.ID, "Library Booking System")

	_, err := app.Projects.Active(ctx, st1.ID)
	assert.Equal(t, project.ErrNoActiveProject, errors.Cause(err))

	asg, err := app.Projects.Select(ctx, st1.ID, prj1.ID)
	require.NoError(t, err)
	assert.True(t, asg.IsActive)
	assert.Equal(t, prj1.ID, asg.ProjectID)
	assert.Contains(t, app.Events(t, sup.ID), notification.EventProjectSelected)

	active, err := app.Projects.Active(ctx, st1.ID)
	require.NoError(t, err)
	assert.Equal(t, prj1.ID, active.ID)
	assert.Equal(t, asg.ID, active.AssignmentID)

	_, err = app.Projects.Select(ctx, st1.ID, prj2.ID)
	assert.Equal(t, project.ErrActiveProjectExists, errors.Cause(err))

	_, err = app.Projects.Select(ctx, st2.ID, prj1.ID)
	assert.Equal(t, project.ErrProjectUnavailable, errors.Cause(err))

	_, err = app.Projects.Select(ctx, st2.ID, 9999)
	assert.Equal(t, project.ErrNotFound, errors.Cause(err))

	available, err := app.Projects.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, prj2.ID, available[0].ID)
}

func TestService_Select_archived(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	st := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	prj := app.CreateProject(t, sup.ID, "Campus Navigation App")

	_, err := app.Projects.UpdateStatus(ctx, prj.ID, project.StatusArchived)
	require.NoError(t, err)

	_, err = app.Projects.Select(ctx, st.ID, prj.ID)
	assert.Equal(t, project.ErrProjectUnavailable, errors.Cause(err))
}

func TestService_Select_concurrent(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	st := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	prjs := []project.Listing{
		app.CreateProject(t, sup.ID, "Campus Navigation App"),
		app.CreateProject(t, sup.ID, "Library Booking System"),
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(prjs))
	)
	for i, prj := range prjs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = app.Projects.Select(ctx, st.ID, id)
		}(i, prj.ID)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.Equal(t, project.ErrActiveProjectExists, errors.Cause(err))
		}
	}
	assert.Equal(t, 1, succeeded, "a student holds one active project at most")
}

func TestService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	st := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	prj := app.CreateProject(t, sup.ID, "Campus Navigation App")
	_, err := app.Projects.Select(ctx, st.ID, prj.ID)
	require.NoError(t, err)

	_, err = app.Projects.UpdateStatus(ctx, prj.ID, "Deleted")
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))

	_, err = app.Projects.UpdateStatus(ctx, 9999, project.StatusArchived)
	assert.Equal(t, project.ErrNotFound, errors.Cause(err))

	got, err := app.Projects.UpdateStatus(ctx, prj.ID, project.StatusArchived)
	require.NoError(t, err)
	assert.Equal(t, project.StatusArchived, got.Status)
	assert.Contains(t, app.Events(t, st.ID), notification.EventProjectArchived)

	_, err = app.Projects.Active(ctx, st.ID)
	assert.Equal(t, project.ErrNoActiveProject, errors.Cause(err), "archiving ends the assignment")

	// reactivated projects are free again
	_, err = app.Projects.UpdateStatus(ctx, prj.ID, project.StatusActive)
	require.NoError(t, err)
	available, err := app.Projects.Available(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestService_AssignExaminerAndModerator(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	exm := app.CreateUser(t, "Prof Ken Examiner", "ken@uni.test", user.RoleExaminer)
	mod := app.CreateUser(t, "Prof Lucy Moderator", "lucy@uni.test", user.RoleModerator)
	prj := app.CreateProject(t, sup.ID, "Campus Navigation App")

	tests := []struct {
		name      string
		assign    func(ctx context.Context, id, userID int64) (project.Project, error)
		userID    int64
		wantField string
	}{
		{"examiner without role", app.Projects.AssignExaminer, mod.ID, "examiner_id"},
		{"unknown examiner", app.Projects.AssignExaminer, 9999, "examiner_id"},
		{"moderator without role", app.Projects.AssignModerator, exm.ID, "moderator_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.assign(ctx, prj.ID, tt.userID)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr))
			require.Len(t, vErr.Fields, 1)
			assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
		})
	}

	got, err := app.Projects.AssignExaminer(ctx, prj.ID, exm.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExaminerID)
	assert.Equal(t, exm.ID, *got.ExaminerID)
	assert.Contains(t, app.Events(t, exm.ID), notification.EventExaminerAssigned)

	got, err = app.Projects.AssignModerator(ctx, prj.ID, mod.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ModeratorID)
	assert.Equal(t, mod.ID, *got.ModeratorID)
	assert.Equal(t, exm.ID, *got.ExaminerID, "examiner is kept")

	_, err = app.Projects.AssignExaminer(ctx, 9999, exm.ID)
	assert.Equal(t, project.ErrNotFound, errors.Cause(err))

	// deactivated users cannot be assigned
	_, err = app.Users.SetActive(ctx, mod.ID, false)
	require.NoError(t, err)
	_, err = app.Projects.AssignModerator(ctx, prj.ID, mod.ID)
	var vErr *core.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	app := testutil.NewApp(t)
	sup1 := app.CreateUser(t, "Dr Grace Wanjiru", "grace@uni.test", user.RoleSupervisor)
	sup2 := app.CreateUser(t, "Dr Peter Mwangi", "peter@uni.test", user.RoleSupervisor)
	p1 := app.CreateProject(t, sup1.ID, "Campus Navigation App")
	p2 := app.CreateProject(t, sup1.ID, "Blockchain Voting")
	p3 := app.CreateProject(t, sup2.ID, "Crop Disease Detection")
	_, err := app.Projects.UpdateStatus(ctx, p2.ID, project.StatusArchived)
	require.NoError(t, err)

	ids := func(listings []project.Listing) []int64 {
		out := make([]int64, 0, len(listings))
		for _, l := range listings {
			out = append(out, l.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   *project.QueryFilter
		ordering []core.DBOrdering
		want     []int64
	}{
		{"all, newest first", nil, nil, []int64{p3.ID, p2.ID, p1.ID}},
		{"by title", nil, []core.DBOrdering{{Field: "title", Ascending: true}}, []int64{p2.ID, p1.ID, p3.ID}},
		{"by supervisor", &project.QueryFilter{SupervisorID: sup1.ID}, nil, []int64{p2.ID, p1.ID}},
		{"by status", &project.QueryFilter{Status: project.StatusArchived}, nil, []int64{p2.ID}},
		{"search", &project.QueryFilter{Search: " DISEASE "}, nil, []int64{p3.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := app.Projects.Query(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}

	mine, err := app.Projects.ListForSupervisor(ctx, sup2.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{p3.ID}, ids(mine))
}
