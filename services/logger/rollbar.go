package logsvc

import (
	"strconv"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
)

// RollbarLogger reports to Rollbar and writes structured logs through zap.
type RollbarLogger struct {
	zl         *zap.SugaredLogger
	configured bool // a token is set outside of tests
	enabled    bool
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(zl *zap.SugaredLogger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	configured := conf.RollbarToken != "" && !conf.TestMode
	rollbar.SetEnabled(configured)
	return &RollbarLogger{zl: zl, configured: configured, enabled: configured}
}

// NewZapLogger returns a development logger in debug mode, a JSON production one otherwise.
func NewZapLogger(conf *core.Config) (*zap.SugaredLogger, error) {
	var (
		zl  *zap.Logger
		err error
	)
	if conf.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return zl.Sugar().With("app", conf.AppName, "env", conf.Env, "build", conf.Build), nil
}

// Enable turns Rollbar reporting on or off. It stays off without a token or in test mode.
func (l *RollbarLogger) Enable(enabled bool) {
	l.enabled = enabled && l.configured
	rollbar.SetEnabled(l.enabled)
}

func (l *RollbarLogger) Enabled() bool { return l.enabled }

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) (rbArgs, kv []interface{}) {
	var usrSet bool
	rbArgs = make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			// set logged in User
			if !usrSet { // only set one User
				rollbar.SetPerson(strconv.FormatInt(a.ID, 10), a.Name, a.Email)
				kv = append(kv, "user_id", a.ID)
				usrSet = true
			}
			continue
		case error:
			kv = append(kv, "error", a)
		case map[string]interface{}:
			for k, v := range a {
				kv = append(kv, k, v)
			}
		default:
			kv = append(kv, "arg", a)
		}
		rbArgs = append(rbArgs, arg)
	}
	if !usrSet {
		rollbar.ClearPerson()
	}
	return rbArgs, kv
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Debug(rbArgs...)
	l.zl.Debugw(msg, kv...)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Info(rbArgs...)
	l.zl.Infow(msg, kv...)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Warning(rbArgs...)
	l.zl.Warnw(msg, kv...)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Error(rbArgs...)
	l.zl.Errorw(msg, kv...)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rbArgs, kv := l.prepare(msg, args)
	rollbar.Critical(rbArgs...)
	rollbar.Close()
	l.zl.Fatalw(msg, kv...)
}

// Sync flushes buffered logs & pending rollbar items.
func (l RollbarLogger) Sync() {
	rollbar.Wait()
	_ = l.zl.Sync()
}
