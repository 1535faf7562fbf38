package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core/user"
)

// requireRole lets through users holding any of roles.
func requireRole(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := contextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.HasAnyRole(roles...) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// requireSelf lets through users whose ID is the `:id` path param.
func requireSelf() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			uid, err := contextUserID(ctx)
			if err != nil {
				return err
			}
			if ctx.Param("id") != strconv.FormatInt(uid, 10) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
