package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
	emailsvc "github.com/trezcool/fyp/services/email"
	inmemdb "github.com/trezcool/fyp/storage/database/inmem"
)

// App wires every domain service over a fresh in-memory database.
type App struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo     user.Repository
	ProjectRepo  project.Repository
	ProposalRepo proposal.Repository
	ProgressRepo progress.Repository
	NotifRepo    notification.Repository
	EvalRepo     evaluation.Repository

	Users         *user.Service
	Notifications *notification.Service
	Projects      *project.Service
	Proposals     *proposal.Service
	Progress      *progress.Service
	Evaluations   *evaluation.Service
}

func NewValidator() *validator.Validate {
	validate, _ := newValidator()
	return validate
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func NewApp(t *testing.T) *App {
	t.Helper()

	conf := core.NewTestConfig()
	db := inmemdb.NewDB()
	validate, translator := newValidator()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	emailsvc.ClearOutbox()

	app := &App{
		Conf:         conf,
		DB:           db,
		Validate:     validate,
		Translator:   translator,
		UserRepo:     inmemdb.NewUserRepository(db),
		ProjectRepo:  inmemdb.NewProjectRepository(db),
		ProposalRepo: inmemdb.NewProposalRepository(db),
		ProgressRepo: inmemdb.NewProgressRepository(db),
		NotifRepo:    inmemdb.NewNotificationRepository(db),
		EvalRepo:     inmemdb.NewEvaluationRepository(db),
	}
	app.Users = user.NewService(app.UserRepo, validate, mailSvc, conf)
	app.Notifications = notification.NewService(app.NotifRepo, nil, core.NopLogger{})
	app.Projects = project.NewService(app.ProjectRepo, app.Users, app.Notifications, validate)
	app.Proposals = proposal.NewService(app.ProposalRepo, app.Users, app.Projects, app.Notifications, mailSvc, validate)
	app.Progress = progress.NewService(app.ProgressRepo, app.Projects, app.Notifications, validate)
	app.Evaluations = evaluation.NewService(app.EvalRepo, app.Projects, app.Notifications, validate)
	return app
}

// CreateUser creates an active user with the default test Password.
func (app *App) CreateUser(t *testing.T, name, email string, roles ...user.Role) user.User {
	t.Helper()
	return CreateUser(t, app.UserRepo, name, email, Password, roles, true)
}

func (app *App) CreateProject(t *testing.T, supervisorID int64, title string) project.Listing {
	t.Helper()
	return CreateProject(t, app.ProjectRepo, supervisorID, title)
}

// Events returns the events notified to userID, newest first.
func (app *App) Events(t *testing.T, userID int64) []notification.Event {
	t.Helper()

	notifs, err := app.Notifications.List(context.Background(), notification.QueryFilter{UserID: userID})
	if err != nil {
		t.Fatalf("listing notifications: %v", err)
	}
	events := make([]notification.Event, 0, len(notifs))
	for _, n := range notifs {
		events = append(events, n.EventName)
	}
	return events
}

// ValidProposal returns a NewProposal to supervisorID that passes validation.
func ValidProposal(supervisorID int64, projectID *int64) proposal.NewProposal {
	return proposal.NewProposal{
		SupervisorID:   supervisorID,
		ProjectID:      projectID,
		Title:          "Smart Irrigation With IoT Sensors",
		Description:    "Build a low cost sensor network that measures soil moisture and drives irrigation valves.",
		Type:           "Development",
		Specialization: "Embedded Systems",
		Outcome:        "A working prototype deployed on a test field.",
	}
}
