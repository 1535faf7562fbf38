package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
)

// error kinds
const (
	kindValidation    = "validation"
	kindRuleViolation = "rule_violation"
	kindUnauthorized  = "unauthorized"
	kindForbidden     = "forbidden"
	kindNotFound      = "not_found"
	kindInternal      = "internal"
	kindHTTP          = "http"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Kind    string            `json:"kind"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code := http.StatusInternalServerError
		resp := ErrorResponse{Kind: kindInternal, Error: http.StatusText(http.StatusInternalServerError)}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code, resp.Kind = http.StatusUnauthorized, kindUnauthorized
				resp.Error = "Unauthorized: " + httpErrorMessage(origErr)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Kind = kindForStatus(code)
			resp.Error = httpErrorMessage(origErr)
			if code == http.StatusUnauthorized {
				resp.Error = "Unauthorized: " + resp.Error
			}
		case validator.ValidationErrors:
			code, resp.Kind, resp.Error = http.StatusBadRequest, kindValidation, "validation failed"
			resp.Fields = make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				resp.Fields[vErr.Field()] = vErr.Translate(translator)
			}
		case *core.ValidationError:
			code, resp.Kind, resp.Error = http.StatusBadRequest, kindValidation, origErr.Error()
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
		case *core.RuleError:
			code, resp.Kind, resp.Error = http.StatusBadRequest, kindRuleViolation, origErr.Error()
		case *core.PermissionError:
			code, resp.Kind, resp.Error = http.StatusForbidden, kindForbidden, origErr.Error()
		case *core.NotFoundError:
			code, resp.Kind, resp.Error = http.StatusNotFound, kindNotFound, origErr.Error()
		default: // any other error is a server error
			args := []interface{}{
				errors.Wrap(err, resp.Error),
				map[string]interface{}{
					"request_id": ctx.Response().Header().Get(echo.HeaderXRequestID),
					"path":       ctx.Path(),
				},
			}
			if claims, cErr := contextClaims(ctx); cErr == nil {
				if id, idErr := claims.UserID(); idErr == nil {
					args = append(args, user.User{ID: id, Email: claims.Email})
				}
			}
			logger.Error(resp.Error, args...)
			if ctx.Echo().Debug {
				resp.Error = err.Error()
			}

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func httpErrorMessage(herr *echo.HTTPError) string {
	if msg, ok := herr.Message.(string); ok {
		return msg
	}
	return http.StatusText(herr.Code)
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return kindValidation
	case http.StatusUnauthorized:
		return kindUnauthorized
	case http.StatusForbidden:
		return kindForbidden
	case http.StatusNotFound:
		return kindNotFound
	}
	if code >= http.StatusInternalServerError {
		return kindInternal
	}
	return kindHTTP + "_" + strconv.Itoa(code)
}
