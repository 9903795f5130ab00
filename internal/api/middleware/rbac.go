package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/pkg/metrics"
)

// Authorize rejects the request with 403 unless the caller's role may
// perform action. It must run after Auth.
func Authorize(action domain.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(ContextKeyRole).(string)
			if !domain.IsAllowed(domain.Role(role), action) {
				metrics.AuthorizationDeniedTotal.WithLabelValues(string(action), role).Inc()
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}
