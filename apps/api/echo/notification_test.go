package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/user"
)

func Test_notificationApi(t *testing.T) {
	app, srv := setup(t)
	amina := app.CreateUser(t, "Amina Otieno", "amina@uni.test", user.RoleStudent)
	brian := app.CreateUser(t, "Brian Mwangi", "brian@uni.test", user.RoleStudent)
	token := getToken(t, app, amina)

	for i := 1; i <= 3; i++ {
		app.Notifications.Notify(ctx(), amina.ID, notification.EventFeedbackReceived, fmt.Sprintf("Feedback #%d", i))
	}
	app.Notifications.Notify(ctx(), brian.ID, notification.EventProgressReminder, "Log your progress.")

	type listResponse struct {
		Notifications []notification.Notification `json:"notifications"`
	}
	list := func(query string) []notification.Notification {
		var resp listResponse
		rec := do(t, srv, http.MethodGet, "/api/notifications"+query, token, nil, &resp)
		require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
		return resp.Notifications
	}
	unread := func() int {
		var resp struct {
			Unread int `json:"unread"`
		}
		rec := do(t, srv, http.MethodGet, "/api/notifications/unread-count", token, nil, &resp)
		require.Equal(t, http.StatusOK, rec.Code)
		return resp.Unread
	}

	all := list("")
	require.Len(t, all, 3)
	assert.Equal(t, "Feedback #3", all[0].Message, "newest first")
	assert.Len(t, list("?limit=2"), 2)
	assert.Equal(t, 3, unread())

	brianNotifs, err := app.Notifications.List(ctx(), notification.QueryFilter{UserID: brian.ID})
	require.NoError(t, err)
	require.Len(t, brianNotifs, 1)

	runHTTPTests(t, srv, []httpTest{
		{name: "auth required", path: "/api/notifications", wantCode: http.StatusUnauthorized, wantErr: &errMissingToken},
		{
			name: "malformed unread", path: "/api/notifications?unread=sure", token: token, wantCode: http.StatusBadRequest,
			wantErr: &echoapi.ErrorResponse{Kind: "validation", Error: "validation failed", Fields: map[string]string{"unread": ""}},
		},
		{
			name: "someone else's notification", method: http.MethodPut, token: token,
			path:     fmt.Sprintf("/api/notifications/%d/read", brianNotifs[0].ID),
			wantCode: http.StatusNotFound, wantErr: &echoapi.ErrorResponse{Kind: "not_found", Error: "notification not found"},
		},
		{name: "mark read", method: http.MethodPut, path: fmt.Sprintf("/api/notifications/%d/read", all[0].ID), token: token, wantCode: http.StatusOK},
	})

	assert.Equal(t, 2, unread())
	assert.Len(t, list("?unread=true"), 2)

	var resp struct {
		Updated int `json:"updated"`
	}
	rec := do(t, srv, http.MethodPut, "/api/notifications/read-all", token, nil, &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Updated)
	assert.Zero(t, unread())

	resp.Updated = -1
	do(t, srv, http.MethodPut, "/api/notifications/read-all", token, nil, &resp)
	assert.Zero(t, resp.Updated, "idempotent")
	assert.Len(t, list(""), 3, "read notifications are still listed")
}
