package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core/notification"
)

type notificationApi struct {
	svc *notification.Service
}

// notifications are always those of the authenticated user, whatever their roles
func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := notificationApi{svc: deps.NotifSvc}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.list)
	ng.GET("/unread-count", api.unreadCount)
	ng.PUT("/read-all", api.markAllRead)
	ng.PUT("/:nid/read", api.markRead)
}

func (api *notificationApi) list(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	unread, err := queryBool(ctx, "unread")
	if err != nil {
		return err
	}
	limit, err := queryInt64(ctx, "limit")
	if err != nil {
		return err
	}

	filter := notification.QueryFilter{UserID: uid, Limit: int(limit)}
	if unread != nil {
		filter.UnreadOnly = *unread
	}
	notifs, err := api.svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"notifications": notifs})
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	count, err := api.svc.UnreadCount(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"unread": count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	nid, err := paramID(ctx, "nid")
	if err != nil {
		return err
	}

	n, err := api.svc.MarkRead(ctx.Request().Context(), uid, nid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"notification": n})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	uid, err := contextUserID(ctx)
	if err != nil {
		return err
	}
	updated, err := api.svc.MarkAllRead(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"updated": updated})
}
