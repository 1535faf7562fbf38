package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/fyp/apps/api/echo"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
)

func Test_evaluationApi(t *testing.T) {
	app, srv := setup(t)
	sup := app.CreateUser(t, "Dr. Wanjiru", "wanjiru@uni.test", user.RoleSupervisor)
	examiner := app.CreateUser(t, "Peter Examiner", "peter@uni.test", user.RoleExaminer)
	moderator := app.CreateUser(t, "Grace Moderator", "grace@uni.test", user.RoleModerator)
	prj := app.CreateProject(t, sup.ID, "Campus Navigation App")
	unassigned := app.CreateProject(t, sup.ID, "Library Chatbot")
	xToken, mToken := getToken(t, app, examiner), getToken(t, app, moderator)
	xBase := fmt.Sprintf("/api/examiners/%d", examiner.ID)
	mBase := fmt.Sprintf("/api/moderators/%d", moderator.ID)

	_, err := app.Projects.AssignExaminer(ctx(), prj.ID, examiner.ID)
	require.NoError(t, err)
	_, err = app.Projects.AssignModerator(ctx(), prj.ID, moderator.ID)
	require.NoError(t, err)

	var projects struct {
		Projects []project.Listing `json:"projects"`
	}
	do(t, srv, http.MethodGet, xBase+"/projects", xToken, nil, &projects)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, prj.ID, projects.Projects[0].ID)

	projects.Projects = nil
	do(t, srv, http.MethodGet, mBase+"/projects", mToken, nil, &projects)
	require.Len(t, projects.Projects, 1)
	assert.Equal(t, prj.ID, projects.Projects[0].ID)

	mark := func(m int) *int { return &m }
	evaluate := fmt.Sprintf("%s/projects/%d/evaluation", xBase, prj.ID)
	runHTTPTests(t, srv, []httpTest{
		{
			name: "examiner role required", method: http.MethodPost, path: evaluate, token: mToken,
			wantCode: http.StatusForbidden, wantErr: &errForbidden,
		},
		{
			name: "not the project examiner", method: http.MethodPost, path: fmt.Sprintf("%s/projects/%d/evaluation", xBase, unassigned.ID),
			token: xToken, body: evaluation.NewEvaluation{Mark: mark(70), Comments: "Good."}, wantCode: http.StatusForbidden,
			wantErr: &echoapi.ErrorResponse{Kind: "forbidden", Error: evaluation.ErrNotExaminer.Error()},
		},
		{
			name: "mark out of range", method: http.MethodPost, path: evaluate, token: xToken,
			body: evaluation.NewEvaluation{Mark: mark(101), Comments: "Too generous."}, wantCode: http.StatusBadRequest,
			wantErr: &echoapi.ErrorResponse{Kind: "validation", Error: "validation failed", Fields: map[string]string{"mark": ""}},
		},
		{
			name: "evaluate", method: http.MethodPost, path: evaluate, token: xToken,
			body: evaluation.NewEvaluation{Mark: mark(68), Comments: "Solid work, weak evaluation chapter."}, wantCode: http.StatusCreated,
		},
		{
			name: "evaluated already", method: http.MethodPost, path: evaluate, token: xToken,
			body: evaluation.NewEvaluation{Mark: mark(70), Comments: "Again."}, wantCode: http.StatusBadRequest,
			wantErr: &echoapi.ErrorResponse{Kind: "rule_violation", Error: evaluation.ErrAlreadyEvaluated.Error()},
		},
	})
	assert.Contains(t, app.Events(t, moderator.ID), notification.EventEvaluationSubmitted)

	var evals struct {
		Evaluations []evaluation.Evaluation `json:"evaluations"`
	}
	do(t, srv, http.MethodGet, xBase+"/evaluations", xToken, nil, &evals)
	require.Len(t, evals.Evaluations, 1)

	evals.Evaluations = nil
	do(t, srv, http.MethodGet, mBase+"/evaluations", mToken, nil, &evals)
	require.Len(t, evals.Evaluations, 1)
	eid := evals.Evaluations[0].ID

	moderate := fmt.Sprintf("%s/evaluations/%d/moderate", mBase, eid)
	runHTTPTests(t, srv, []httpTest{
		{
			name: "moderated mark required", method: http.MethodPost, path: moderate, token: mToken,
			body: map[string]string{"moderation_comments": "ok"}, wantCode: http.StatusBadRequest,
			wantErr: &echoapi.ErrorResponse{Kind: "validation", Error: "validation failed", Fields: map[string]string{"moderated_mark": ""}},
		},
		{
			name: "unknown evaluation", method: http.MethodPost, path: mBase + "/evaluations/999/moderate", token: mToken,
			body: evaluation.Moderation{Mark: mark(65)}, wantCode: http.StatusNotFound,
			wantErr: &echoapi.ErrorResponse{Kind: "not_found", Error: "evaluation not found"},
		},
	})

	var moderated struct {
		Evaluation evaluation.Evaluation `json:"evaluation"`
	}
	rec := do(t, srv, http.MethodPost, moderate, mToken,
		evaluation.Moderation{Mark: mark(65), Comments: "Adjusted to the rubric."}, &moderated)
	require.Equalf(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.Equal(t, evaluation.StatusModerated, moderated.Evaluation.Status)
	require.NotNil(t, moderated.Evaluation.ModeratedMark)
	assert.Equal(t, 65, *moderated.Evaluation.ModeratedMark)
	assert.Contains(t, app.Events(t, examiner.ID), notification.EventEvaluationModerated)

	var resp echoapi.ErrorResponse
	rec = do(t, srv, http.MethodPost, moderate, mToken, evaluation.Moderation{Mark: mark(60)}, &resp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, evaluation.ErrAlreadyModerated.Error(), resp.Error)
}
