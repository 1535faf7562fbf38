package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/fyp/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `?ordering=name,-created_at`; fields maps accepted names to columns.
func (ord *Ordering) Bind(ctx echo.Context, fields map[string]string) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		column, ok := fields[field]
		if !ok {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: "unknown ordering field " + strconv.Quote(field)})
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: column, Ascending: !descending})
	}
	return nil
}

// paramID parses the path param name; malformed ids are not found.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func queryInt64(ctx echo.Context, name string) (int64, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	i, err := strconv.ParseInt(val, 10, 64)
	if err != nil || i < 0 {
		return 0, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a positive integer"})
	}
	return i, nil
}

func queryBool(ctx echo.Context, name string) (*bool, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil, core.NewValidationError(nil, core.FieldError{Field: name, Error: name + " must be a boolean"})
	}
	return &b, nil
}

// respond writes the success envelope: {"success": true, ...payload}.
func respond(ctx echo.Context, code int, payload echo.Map) error {
	body := make(echo.Map, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = true
	return ctx.JSON(code, body)
}
