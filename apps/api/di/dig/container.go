package dig_container

import (
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
	"github.com/trezcool/fyp/jobs"
	emailsvc "github.com/trezcool/fyp/services/email"
	logsvc "github.com/trezcool/fyp/services/logger"
	realtimesvc "github.com/trezcool/fyp/services/realtime"
	"github.com/trezcool/fyp/storage/database"
	sqlxrepo "github.com/trezcool/fyp/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	// ServerParams gathers what the API server needs.
	ServerParams struct {
		dig.In

		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		UserSvc     *user.Service
		ProjectSvc  *project.Service
		ProposalSvc *proposal.Service
		ProgressSvc *progress.Service
		NotifSvc    *notification.Service
		EvalSvc     *evaluation.Service
	}
)

func newLogger(zl *zap.SugaredLogger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(zl *zap.SugaredLogger, conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(zl.Named("db"), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.MigrateUp(db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal("setting up database: "+err.Error(), err)
	}
	return db, db
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newBroadcaster returns a nil Broadcaster when redis is not configured: notifications are then only stored.
func newBroadcaster(conf *core.Config, logger core.Logger) notification.Broadcaster {
	if conf.Redis.Addr == "" {
		return nil
	}
	b, err := realtimesvc.NewRedisBroadcaster(conf)
	if err != nil {
		logger.Error("live notifications disabled: "+err.Error(), err)
		return nil
	}
	return b
}

func newNotifier(svc *notification.Service) notification.Notifier {
	return svc
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		UserSvc:     p.UserSvc,
		ProjectSvc:  p.ProjectSvc,
		ProposalSvc: p.ProposalSvc,
		ProgressSvc: p.ProgressSvc,
		NotifSvc:    p.NotifSvc,
		EvalSvc:     p.EvalSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(logsvc.NewZapLogger))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newValidator))
	must(c.Provide(newEmailService))
	must(c.Provide(newBroadcaster))

	must(c.Provide(sqlxrepo.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepo.NewProjectRepository, dig.As(new(project.Repository))))
	must(c.Provide(sqlxrepo.NewProposalRepository, dig.As(new(proposal.Repository))))
	must(c.Provide(sqlxrepo.NewProgressRepository, dig.As(new(progress.Repository))))
	must(c.Provide(sqlxrepo.NewNotificationRepository, dig.As(new(notification.Repository))))
	must(c.Provide(sqlxrepo.NewEvaluationRepository, dig.As(new(evaluation.Repository))))

	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(newNotifier))
	must(c.Provide(project.NewService))
	must(c.Provide(proposal.NewService))
	must(c.Provide(progress.NewService))
	must(c.Provide(evaluation.NewService))

	must(c.Provide(jobs.NewProgressReminder))
	must(c.Provide(jobs.NewScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
