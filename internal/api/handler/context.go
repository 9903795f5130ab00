package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/originals/task-api/internal/api/middleware"
	"github.com/originals/task-api/internal/core/domain"
)

// ctxPrincipal extracts the caller injected by the Auth middleware. A missing
// username or role means the route was not behind Auth; reject with 401.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	username, _ := c.Get(middleware.ContextKeyUsername).(string)
	role, _ := c.Get(middleware.ContextKeyRole).(string)
	if username == "" || role == "" {
		return domain.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return domain.Principal{Username: username, Role: domain.Role(role)}, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// bindAndValidate binds the request body and runs the struct validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
