package sqlxrepos_test

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
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
	emailsvc "github.com/trezcool/fyp/services/email"
	sqlxrepo "github.com/trezcool/fyp/storage/database/sqlx"
	testutil "github.com/trezcool/fyp/tests"
)

type services struct {
	usrRepo   user.Repository
	prjRepo   project.Repository
	notifs    *notification.Service
	projects  *project.Service
	proposals *proposal.Service
}

func setup(t *testing.T) services {
	db := testutil.PrepareDB(t)
	conf := core.NewTestConfig()
	validate := testutil.NewValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	s := services{
		usrRepo: sqlxrepo.NewUserRepository(db),
		prjRepo: sqlxrepo.NewProjectRepository(db),
	}
	usrSvc := user.NewService(s.usrRepo, validate, mailSvc, conf)
	s.notifs = notification.NewService(sqlxrepo.NewNotificationRepository(db), nil, core.NopLogger{})
	s.projects = project.NewService(s.prjRepo, usrSvc, s.notifs, validate)
	s.proposals = proposal.NewService(sqlxrepo.NewProposalRepository(db), usrSvc, s.projects, s.notifs, mailSvc, validate)
	return s
}

func TestUserRepository_emailUniqueness(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, s.usrRepo, "Amina Otieno", "amina@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)

	got, err := s.usrRepo.GetUserByEmail(ctx, "amina@uni.test")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.Equal(t, user.Roles{user.RoleStudent}, got.Roles)

	exists, err := s.usrRepo.EmailExists(ctx, "amina@uni.test", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.usrRepo.EmailExists(ctx, "amina@uni.test", usr.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProjectRepository_availability(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	sup := testutil.CreateUser(t, s.usrRepo, "Dr Grace Wanjiru", "grace@uni.test", testutil.Password, user.Roles{user.RoleSupervisor}, true)
	amina := testutil.CreateUser(t, s.usrRepo, "Amina Otieno", "amina@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)
	brian := testutil.CreateUser(t, s.usrRepo, "Brian Kamau", "brian@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)
	approved := testutil.CreateProject(t, s.prjRepo, sup.ID, "Campus Navigation App")
	free := testutil.CreateProject(t, s.prjRepo, sup.ID, "Library Booking System")

	// an approved proposal of brian's takes the project out of everyone's list
	p, err := s.proposals.Submit(ctx, brian.ID, testutil.ValidProposal(sup.ID, &approved.ID))
	require.NoError(t, err)
	_, err = s.proposals.Decide(ctx, sup.ID, p.ID, proposal.DecisionInput{Decision: proposal.DecisionApprove})
	require.NoError(t, err)

	available, err := s.projects.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].ID)

	_, err = s.projects.Select(ctx, amina.ID, approved.ID)
	assert.Equal(t, project.ErrProjectUnavailable, errors.Cause(err))

	_, err = s.projects.Select(ctx, amina.ID, free.ID)
	require.NoError(t, err)

	_, err = s.proposals.Submit(ctx, amina.ID, testutil.ValidProposal(sup.ID, nil))
	assert.Equal(t, project.ErrActiveProjectExists, errors.Cause(err), "no proposal while holding a project")

	mine, err := s.proposals.ListForStudent(ctx, amina.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestProjectRepository_approvedAfterReactivation(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	sup := testutil.CreateUser(t, s.usrRepo, "Dr Grace Wanjiru", "grace@uni.test", testutil.Password, user.Roles{user.RoleSupervisor}, true)
	amina := testutil.CreateUser(t, s.usrRepo, "Amina Otieno", "amina@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)
	brian := testutil.CreateUser(t, s.usrRepo, "Brian Kamau", "brian@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)
	prj := testutil.CreateProject(t, s.prjRepo, sup.ID, "Campus Navigation App")
	free := testutil.CreateProject(t, s.prjRepo, sup.ID, "Library Booking System")

	p, err := s.proposals.Submit(ctx, brian.ID, testutil.ValidProposal(sup.ID, &prj.ID))
	require.NoError(t, err)
	_, err = s.proposals.Decide(ctx, sup.ID, p.ID, proposal.DecisionInput{Decision: proposal.DecisionApprove})
	require.NoError(t, err)

	// no active assignment left: the approval alone keeps the project out
	_, err = s.projects.UpdateStatus(ctx, prj.ID, project.StatusArchived)
	require.NoError(t, err)
	_, err = s.projects.UpdateStatus(ctx, prj.ID, project.StatusActive)
	require.NoError(t, err)

	available, err := s.projects.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].ID)

	_, err = s.projects.Select(ctx, amina.ID, prj.ID)
	assert.Equal(t, project.ErrProjectUnavailable, errors.Cause(err))
}

func TestProjectRepository_selectConcurrent(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	sup := testutil.CreateUser(t, s.usrRepo, "Dr Grace Wanjiru", "grace@uni.test", testutil.Password, user.Roles{user.RoleSupervisor}, true)
	st := testutil.CreateUser(t, s.usrRepo, "Amina Otieno", "amina@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)

	prjs := make([]project.Listing, 4)
	for i := range prjs {
		prjs[i] = testutil.CreateProject(t, s.prjRepo, sup.ID, "Project "+string(rune('A'+i)))
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(prjs))
	)
	for i, prj := range prjs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = s.projects.Select(ctx, st.ID, id)
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

func TestNotificationRepository_markAllRead(t *testing.T) {
	s := setup(t)
	ctx := context.Background()
	st := testutil.CreateUser(t, s.usrRepo, "Amina Otieno", "amina@uni.test", testutil.Password, user.Roles{user.RoleStudent}, true)

	s.notifs.Notify(ctx, st.ID, notification.EventFeedbackReceived, "Feedback #1")
	s.notifs.Notify(ctx, st.ID, notification.EventFeedbackReceived, "Feedback #2")

	n, err := s.notifs.UnreadCount(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for i := 0; i < 2; i++ {
		_, err = s.notifs.MarkAllRead(ctx, st.ID)
		require.NoError(t, err)
	}
	n, err = s.notifs.UnreadCount(ctx, st.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
