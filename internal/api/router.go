package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/originals/task-api/internal/api/handler"
	"github.com/originals/task-api/internal/api/middleware"
	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
)

// Dependencies are the services and probes the router wires into handlers.
type Dependencies struct {
	Auth   ports.AuthService
	Tasks  ports.TaskService
	Tokens middleware.TokenVerifier
	Probes []handler.Dependency
	Logger zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddleware("taskapi"))

	// --- Operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Probes...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authHandler := handler.NewAuthHandler(deps.Auth)
	taskHandler := handler.NewTaskHandler(deps.Tasks, deps.Auth)
	authn := middleware.Auth(deps.Tokens)

	v1 := e.Group("/api/v1")

	// --- Auth routes ---
	v1.POST("/register", authHandler.Register)
	v1.POST("/login", authHandler.Login)
	v1.POST("/refresh", authHandler.Refresh)

	// --- User routes ---
	users := v1.Group("/users", authn)
	users.GET("/me", authHandler.Me)
	users.DELETE("/:id", authHandler.DeleteUser, middleware.Authorize(domain.ActionDeleteUser))

	// --- Task routes ---
	tasks := v1.Group("/tasks", authn)
	tasks.POST("", taskHandler.Create, middleware.Authorize(domain.ActionCreateTask))
	tasks.GET("/:id", taskHandler.Get, middleware.Authorize(domain.ActionReadTask))
	tasks.PUT("/:id", taskHandler.Update, middleware.Authorize(domain.ActionUpdateTask))
	tasks.DELETE("/:id", taskHandler.Delete, middleware.Authorize(domain.ActionDeleteTask))
	tasks.POST("/:id/assign/:user_id", taskHandler.Assign, middleware.Authorize(domain.ActionAssignTask))
	tasks.PUT("/:id/status", taskHandler.ChangeStatus, middleware.Authorize(domain.ActionChangeStatus))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
