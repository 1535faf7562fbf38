package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/user"
	"github.com/trezcool/fyp/tests"
)

var (
	errMissingToken = echoapi.ErrorResponse{Kind: "unauthorized", Error: "Unauthorized: missing or malformed jwt"}
	errForbidden    = echoapi.ErrorResponse{Kind: "forbidden", Error: "permission denied"}
)

func setup(t *testing.T) (*testutil.App, *echoapi.Server) {
	t.Helper()

	app := testutil.NewApp(t)
	srv := echoapi.NewServer(echoapi.Deps{
		Conf:        app.Conf,
		Logger:      core.NopLogger{},
		Validate:    app.Validate,
		Translator:  app.Translator,
		UserSvc:     app.Users,
		ProjectSvc:  app.Projects,
		ProposalSvc: app.Proposals,
		ProgressSvc: app.Progress,
		NotifSvc:    app.Notifications,
		EvalSvc:     app.Evaluations,
	})
	t.Cleanup(func() { _ = srv.Close() })
	return app, srv
}

func ctx() context.Context { return context.Background() }

type httpTest struct {
	name     string
	method   string
	path     string
	body     interface{}
	token    string
	wantCode int
	wantErr  *echoapi.ErrorResponse
}

func newAuthRequest(t *testing.T, method, path, token string, data interface{}) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	if data != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(data))
	}
	if method == "" {
		method = http.MethodGet
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// do serves the request and decodes the response body into out, if not nil.
func do(t *testing.T, srv *echoapi.Server, method, path, token string, data, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	req, rec := newAuthRequest(t, method, path, token, data)
	srv.ServeHTTP(rec, req)
	if out != nil {
		require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), out), "decoding %s", rec.Body.String())
	}
	return rec
}

func getToken(t *testing.T, app *testutil.App, usr user.User) string {
	t.Helper()

	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, app.Conf), app.Conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func runHTTPTests(t *testing.T, srv *echoapi.Server, tests []httpTest) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp echoapi.ErrorResponse
			rec := do(t, srv, tt.method, tt.path, tt.token, tt.body, &resp)
			assert.Equalf(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
			if tt.wantErr != nil {
				assert.False(t, resp.Success)
				assert.Equal(t, tt.wantErr.Kind, resp.Kind)
				assert.Equal(t, tt.wantErr.Error, resp.Error)
				for field := range tt.wantErr.Fields {
					assert.Contains(t, resp.Fields, field)
				}
			} else {
				assert.True(t, resp.Success, rec.Body.String())
			}
		})
	}
}

func fieldNames(resp echoapi.ErrorResponse) []string {
	names := make([]string, 0, len(resp.Fields))
	for name := range resp.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
