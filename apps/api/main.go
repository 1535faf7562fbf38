package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/jmoiron/sqlx"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/fyp/apps/api/di/dig"
	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/jobs"
)

type appParams struct {
	dig.In

	Conf          *core.Config
	APILogger     core.Logger
	DBLoggerParam dig_container.DBLoggerParam
	DB            *sqlx.DB
	Broadcaster   notification.Broadcaster
	Scheduler     *jobs.Scheduler
	Server        *echoapi.Server
}

func main() {
	c := dig_container.New()
	must(c.Invoke(run))
}

func run(p appParams) {
	conf, apiLogger, server := p.Conf, p.APILogger, p.Server

	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	dbLogger := p.DBLoggerParam.Logger
	defer syncLoggers(apiLogger, dbLogger)
	defer func() {
		if err := p.DB.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	if closer, ok := p.Broadcaster.(interface{ Close() error }); ok {
		defer func() { _ = closer.Close() }()
	}
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Jobs

	p.Scheduler.Start()
	apiLogger.Info(fmt.Sprintf("Scheduler started : %d job(s)", p.Scheduler.Entries()))

	// =========================================================================
	// Start API Service

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shut down and shed load
		if err := server.Shutdown(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				apiLogger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
		p.Scheduler.Stop(ctx)
	}
}

// syncLoggers flushes the loggers buffering entries, e.g. pending Rollbar items.
func syncLoggers(loggers ...core.Logger) {
	for _, l := range loggers {
		if s, ok := l.(interface{ Sync() }); ok {
			s.Sync()
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
