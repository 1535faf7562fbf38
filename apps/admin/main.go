package main

import (
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
	emailsvc "github.com/trezcool/fyp/services/email"
	logsvc "github.com/trezcool/fyp/services/logger"
	"github.com/trezcool/fyp/storage/database"
	sqlxrepo "github.com/trezcool/fyp/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		panic(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal("creating database: "+err.Error(), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database: "+err.Error(), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:     db.DB,
		usrSvc: user.NewService(sqlxrepo.NewUserRepository(db), validate, emailsvc.NewConsoleService(conf, logger), conf),
	}
	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			zl.Errorf("\nerror: %s\n", err)
		}
		code = 1
	}
	_ = db.Close()
	logger.Sync()
	os.Exit(code)
}
