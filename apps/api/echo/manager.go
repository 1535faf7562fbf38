package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/user"
)

type managerApi struct {
	validate *validator.Validate
	usrSvc   *user.Service
	prjSvc   *project.Service
}

func registerManagerAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := managerApi{
		validate: deps.Validate,
		usrSvc:   deps.UserSvc,
		prjSvc:   deps.ProjectSvc,
	}

	mg := g.Group("/managers/:id", jwt, requireRole(user.RoleManager), requireSelf())
	mg.GET("/users", api.queryUsers)
	mg.POST("/users", api.createUser)
	mg.GET("/users/:uid", api.retrieveUser)
	mg.PUT("/users/:uid", api.updateUser)
	mg.PUT("/users/:uid/deactivate", api.deactivateUser)
	mg.PUT("/users/:uid/activate", api.activateUser)
	mg.GET("/examiners", api.listByRole(user.RoleExaminer, "examiners"))
	mg.GET("/moderators", api.listByRole(user.RoleModerator, "moderators"))
	mg.GET("/projects", api.queryProjects)
	mg.PUT("/projects/:pid/status", api.updateProjectStatus)
	mg.PUT("/projects/:pid/examiner", api.assignExaminer)
	mg.PUT("/projects/:pid/moderator", api.assignModerator)
}

// Handlers

func (api *managerApi) queryUsers(ctx echo.Context) error {
	filter := &user.QueryFilter{Search: ctx.QueryParam("search")}
	for _, r := range ctx.QueryParams()["role"] {
		role, err := user.ParseRole(r)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
		}
		filter.Roles = append(filter.Roles, role)
	}
	isActive, err := queryBool(ctx, "is_active")
	if err != nil {
		return err
	}
	filter.IsActive = isActive

	ordering := new(Ordering)
	if err = ordering.Bind(ctx, user.OrderingFields); err != nil {
		return err
	}

	users, err := api.usrSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	return respond(ctx, http.StatusOK, echo.Map{"users": users})
}

func (api *managerApi) createUser(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	usr, err := api.usrSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusCreated, echo.Map{"user": usr})
}

func (api *managerApi) retrieveUser(ctx echo.Context) error {
	uid, err := paramID(ctx, "uid")
	if err != nil {
		return err
	}
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), uid)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"user": usr})
}

func (api *managerApi) updateUser(ctx echo.Context) error {
	uid, err := paramID(ctx, "uid")
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	usr, err := api.usrSvc.Update(ctx.Request().Context(), uid, data)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"user": usr})
}

func (api *managerApi) deactivateUser(ctx echo.Context) error {
	uid, err := paramID(ctx, "uid")
	if err != nil {
		return err
	}

	// managers cannot lock themselves out
	if mid, _ := paramID(ctx, "id"); uid == mid {
		return errHttpForbidden
	}
	return api.setActive(ctx, uid, false)
}

func (api *managerApi) activateUser(ctx echo.Context) error {
	uid, err := paramID(ctx, "uid")
	if err != nil {
		return err
	}
	return api.setActive(ctx, uid, true)
}

func (api *managerApi) setActive(ctx echo.Context, uid int64, active bool) error {
	usr, err := api.usrSvc.SetActive(ctx.Request().Context(), uid, active)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"user": usr})
}

func (api *managerApi) listByRole(role user.Role, key string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		users, err := api.usrSvc.ListActiveByRole(ctx.Request().Context(), role)
		if err != nil {
			return errors.Wrapf(err, "listing %ss", role)
		}
		return respond(ctx, http.StatusOK, echo.Map{key: users})
	}
}

func (api *managerApi) queryProjects(ctx echo.Context) error {
	filter := &project.QueryFilter{
		Search: ctx.QueryParam("search"),
		Status: project.Status(ctx.QueryParam("status")),
	}
	supID, err := queryInt64(ctx, "supervisor_id")
	if err != nil {
		return err
	}
	filter.SupervisorID = supID

	ordering := new(Ordering)
	if err = ordering.Bind(ctx, project.OrderingFields); err != nil {
		return err
	}

	projects, err := api.prjSvc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"projects": projects})
}

func (api *managerApi) updateProjectStatus(ctx echo.Context) error {
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data ProjectStatusRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProjectStatusRequest")
	}
	prj, err := api.prjSvc.UpdateStatus(ctx.Request().Context(), pid, data.Status)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"project": prj})
}

func (api *managerApi) assignExaminer(ctx echo.Context) error {
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data AssignExaminerRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignExaminerRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	prj, err := api.prjSvc.AssignExaminer(ctx.Request().Context(), pid, data.ExaminerID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"project": prj})
}

func (api *managerApi) assignModerator(ctx echo.Context) error {
	pid, err := paramID(ctx, "pid")
	if err != nil {
		return err
	}

	var data AssignModeratorRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignModeratorRequest")
	}
	if err = api.validate.Struct(data); err != nil {
		return err
	}
	prj, err := api.prjSvc.AssignModerator(ctx.Request().Context(), pid, data.ModeratorID)
	if err != nil {
		return err
	}
	return respond(ctx, http.StatusOK, echo.Map{"project": prj})
}

type (
	ProjectStatusRequest struct {
		Status project.Status `json:"status"`
	}

	AssignExaminerRequest struct {
		ExaminerID int64 `json:"examiner_id" validate:"required,gt=0"`
	}

	AssignModeratorRequest struct {
		ModeratorID int64 `json:"moderator_id" validate:"required,gt=0"`
	}
)
