package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/fyp/core/notification"
	"github.com/trezcool/fyp/core/progress"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/proposal"
	"github.com/trezcool/fyp/core/user"
)

type supervisorApi struct {
	prjSvc   *project.Service
	propSvc  *proposal.Service
	progSvc  *progress.Service
	notifSvc *notification.Service
}

func registerSupervisorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := supervisorApi{
		prjSvc:   deps.ProjectSvc,
		propSvc:  deps.ProposalSvc,
		progSvc:  deps.ProgressSvc,
		notifSvc: deps.NotifSvc,
	}

	sg := g.Group("/supervisors/:id", jwt, requireRole(user.RoleSupervisor), requireSelf())
	sg.GET("/dashboard", api.dashboard)
	sg.GET("/proposals", api.listProposals)
	sg.POST("/proposals/:pid/decision", api.decide)
	sg.GET("/proposals/:pid/history", api.history)
	sg.GET("/projects", api.listProjects)
	sg.POST("/projects", api.createProject)
	sg.GET("/progress-logs", api.listLogs)
	sg.GET("/progress-reports", api.listReports)
	sg.POST("/feedback/log/:lid", api.logFeedback)
	sg.POST("/feedback/report/:rid", api.reportFeedback)
}

// DashboardStats summarizes what awaits a supervisor.
type DashboardStats struct {
	PendingProposals    int `json:"pending_proposals"`
	Projects            int `json:"projects"`
	UnreviewedLogs      int `json:"unreviewed_logs"`
	UnreviewedReports   int `json:"unreviewed_reports"`
	UnreadNotifications int `json:"unread_notifications"`
}

func (api *supervisorApi) dashboard(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var stats DashboardStats
	g, gctx := errgroup.WithContext(ctx.Request().Context())
	g.SetLimit(3)

	g.Go(func() error {
		proposals, err := api.propSvc.ListForSupervisor(gctx, sid, proposal.StatusPending)
		if err != nil {
			return err
		}
		stats.PendingProposals = len(proposals)
		return nil
	})
	g.Go(func() error {
		projects, err := api.prjSvc.ListForSupervisor(gctx, sid)
		if err != nil {
			return err
		}
		stats.Projects = len(projects)
		return nil
	})
	g.Go(func() error {
		var err error
		stats.UnreviewedLogs, stats.UnreviewedReports, err = api.progSvc.CountUnreviewed(gctx, sid)
		return err
	})
	g.Go(func() error {
		var err error
		stats.UnreadNotifications, err = api.notifSvc.UnreadCount(gctx, sid)
		return err
	})

	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return respond(ctx, http.StatusOK, echo.Map{"dashboard": stats})
}

func (api *supervisorApi) listProposals(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	status := proposal.Status(ctx.QueryParam("status"))

	proposals, err := api.propSvc.ListForSupervisor(ctx.Request().Context(), sid, status)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"proposals": proposals})
}

func (api *supervisorApi) decide(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data proposal.DecisionInput
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DecisionInput")
	}
	p, err := api.propSvc.Decide(ctx.Request().Context(), sid, pid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"proposal": p})
}

func (api *supervisorApi) history(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	history, err := api.propSvc.History(ctx.Request().Context(), sid, pid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"history": history})
}

func (api *supervisorApi) listProjects(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	projects, err := api.prjSvc.ListForSupervisor(ctx.Request().Context(), sid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"projects": projects})
}

func (api *supervisorApi) createProject(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")

	var data project.NewProject
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewProject")
	}
	prj, err := api.prjSvc.Create(ctx.Request().Context(), sid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"project": prj})
}

func (api *supervisorApi) listLogs(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	projectID, err := queryInt64(ctx, "project_id")
	if err != nil {
		return err
	}

	logs, err := api.progSvc.ListSupervisorLogs(ctx.Request().Context(), sid, projectID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"logs": logs})
}

func (api *supervisorApi) listReports(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	projectID, err := queryInt64(ctx, "project_id")
	if err != nil {
		return err
	}

	reports, err := api.progSvc.ListSupervisorReports(ctx.Request().Context(), sid, projectID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"reports": reports})
}

func (api *supervisorApi) logFeedback(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	lid, err := paramID(ctx, "lid")
	if err != nil {
		return err
	}

	var data progress.LogFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LogFeedback")
	}
	l, err := api.progSvc.AddLogFeedback(ctx.Request().Context(), sid, lid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"log": l})
}

func (api *supervisorApi) reportFeedback(ctx echo.Context) error {
	sid, _ := paramID(ctx, "id")
	rid, err := paramID(ctx, "rid")
	if err != nil {
		return err
	}

	var data progress.ReportFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReportFeedback")
	}
	r, err := api.progSvc.AddReportFeedback(ctx.Request().Context(), sid, rid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"report": r})
}
