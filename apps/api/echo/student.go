package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
)

type studentApi struct {
	validate *validator.Validate
	usrSvc   *user.Service
	prjSvc   *project.Service
	propSvc  *proposal.Service
	progSvc  *progress.Service
}

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := studentApi{
		validate: deps.Validate,
		usrSvc:   deps.UserSvc,
		prjSvc:   deps.ProjectSvc,
		propSvc:  deps.ProposalSvc,
		progSvc:  deps.ProgressSvc,
	}

	sg := g.Group("/students/:id", jwt, requireRole(user.RoleStudent), requireSelf())
	sg.GET("/proposals", api.listProposals)
	sg.POST("/proposals", api.submitProposal)
	sg.GET("/proposals/:pid", api.proposalStatus)
	sg.PUT("/proposals/:pid", api.updateProposal)
	sg.POST("/proposals/:pid/resubmit", api.resubmitProposal)
	sg.GET("/supervisors", api.listSupervisors)
	sg.GET("/available-projects", api.availableProjects)
	sg.POST("/select-project", api.selectProject)
	sg.GET("/active-project", api.activeProject)
	sg.GET("/progress-logs", api.listLogs)
	sg.POST("/progress-logs", api.submitLog)
	sg.GET("/progress-reports", api.listReports)
	sg.POST("/progress-reports", api.submitReport)
}

// Handlers

func (api *studentApi) listProposals(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	proposals, err := api.propSvc.ListForStudent(ctx.Request().Context(), sid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"proposals": proposals})
}

func (api *studentApi) submitProposal(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var data proposal.NewProposal
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProposal")
	}
	p, err := api.propSvc.Submit(ctx.Request().Context(), sid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"proposal": p})
}

func (api *studentApi) proposalStatus(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	p, err := api.propSvc.Status(ctx.Request().Context(), sid, pid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"status": p.Status, "proposal": p})
}

func (api *studentApi) updateProposal(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data proposal.UpdateProposal
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProposal")
	}
	p, err := api.propSvc.Update(ctx.Request().Context(), sid, pid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"proposal": p})
}

func (api *studentApi) resubmitProposal(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	p, err := api.propSvc.Resubmit(ctx.Request().Context(), sid, pid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"proposal": p})
}

func (api *studentApi) listSupervisors(ctx echo.Context) error {
	supervisors, err := api.usrSvc.ListActiveByRole(ctx.Request().Context(), user.RoleSupervisor)
	if err != nil {
		return errors.Wrap(err, "listing supervisors")
	}
	return respond(ctx, http.StatusOK, echo.Map{"supervisors": supervisors})
}

func (api *studentApi) availableProjects(ctx echo.Context) error {
	projects, err := api.prjSvc.Available(ctx.Request().Context())
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"projects": projects})
}

func (api *studentApi) selectProject(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var data SelectProjectRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SelectProjectRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	asg, err := api.prjSvc.Select(ctx.Request().Context(), sid, data.ProjectID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"assignment": asg})
}

// activeProject answers `"project": null` to students holding none.
func (api *studentApi) activeProject(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	active, err := api.prjSvc.Active(ctx.Request().Context(), sid)
	if err != nil {
		if errors.Cause(err) == project.ErrNoActiveProject {
			return respond(ctx, http.StatusOK, echo.Map{"project": nil})
		}
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"project": active})
}

func (api *studentApi) listLogs(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	logs, err := api.progSvc.ListStudentLogs(ctx.Request().Context(), sid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"logs": logs})
}

func (api *studentApi) submitLog(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var data progress.NewLog
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLog")
	}
	l, err := api.progSvc.SubmitLog(ctx.Request().Context(), sid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"log": l})
}

func (api *studentApi) listReports(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	reports, err := api.progSvc.ListStudentReports(ctx.Request().Context(), sid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"reports": reports})
}

func (api *studentApi) submitReport(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var data progress.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	r, err := api.progSvc.SubmitReport(ctx.Request().Context(), sid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"report": r})
}

type SelectProjectRequest struct {
	ProjectID int64 `json:"project_id" validate:"required,gt=0"`
}
