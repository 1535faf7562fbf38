package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/user"
)

type evaluationApi struct {
	svc *evaluation.Service
}

func registerModeratorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := evaluationApi{svc: deps.EvalSvc}

	mg := g.Group("/moderators/:id", jwt, requireRole(user.RoleModerator), requireSelf())
	mg.GET("/projects", api.moderatorProjects)
	mg.GET("/evaluations", api.moderatorEvaluations)
	mg.POST("/evaluations/:eid/moderate", api.moderate)
}

func registerExaminerAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := evaluationApi{svc: deps.EvalSvc}

	eg := g.Group("/examiners/:id", jwt, requireRole(user.RoleExaminer), requireSelf())
	eg.GET("/projects", api.examinerProjects)
	eg.GET("/evaluations", api.examinerEvaluations)
	eg.POST("/projects/:pid/evaluation", api.evaluate)
}

// Moderator handlers

func (api *evaluationApi) moderatorProjects(ctx echo.Context) error {
	mid, _ := paramID(ctx, "id")
	projects, err := api.svc.ProjectsForModerator(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"projects": projects})
}

func (api *evaluationApi) moderatorEvaluations(ctx echo.Context) error {
	mid, _ := paramID(ctx, "id")
	evals, err := api.svc.ListForModerator(ctx.Request().Context(), mid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"evaluations": evals})
}

func (api *evaluationApi) moderate(ctx echo.Context) error {
	mid, _ := paramID(ctx, "id")
	eid, err := paramID(ctx, "eid")
	if err != nil {
		return err
	}

	var data evaluation.Moderation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Moderation")
	}
	e, err := api.svc.Moderate(ctx.Request().Context(), mid, eid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"evaluation": e})
}

// Examiner handlers

func (api *evaluationApi) examinerProjects(ctx echo.Context) error {
	xid, _ := paramID(ctx, "id")
	projects, err := api.svc.ProjectsForExaminer(ctx.Request().Context(), xid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"projects": projects})
}

func (api *evaluationApi) examinerEvaluations(ctx echo.Context) error {
	xid, _ := paramID(ctx, "id")
	evals, err := api.svc.ListForExaminer(ctx.Request().Context(), xid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"evaluations": evals})
}

func (api *evaluationApi) evaluate(ctx echo.Context) error {
	xid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data evaluation.NewEvaluation
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvaluation")
	}
	e, err := api.svc.Submit(ctx.Request().Context(), xid, pid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"evaluation": e})
}
