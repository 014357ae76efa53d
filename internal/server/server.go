package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"sqlreport/internal/config"
	"sqlreport/internal/domain/query"
	"sqlreport/internal/domain/report"
	"sqlreport/internal/domain/table"
	sqlpool "sqlreport/internal/infrastructure/sql"
	"sqlreport/internal/models"
	"sqlreport/internal/scheduler"
	"sqlreport/internal/service"
)

// HTTPServer is the lifecycle surface used by cmd/server.
type HTTPServer interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// Schedules manages scheduled exports.
type Schedules interface {
	Entries() []scheduler.Entry
	RunNow(ctx context.Context, name string) (*models.Export, error)
}

// Server represents the HTTP server
type Server struct {
	echo      *echo.Echo
	service   service.ReportService
	schedules Schedules
	logger    *logrus.Logger
}

// requestValidator plugs validator/v10 into echo
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// NewServer creates a new HTTP server
func NewServer(cfg config.Config, reportService service.ReportService, schedules Schedules, logger *logrus.Logger) *Server {
	e := echo.New()
	e.Debug = cfg.Server.Debug
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validator.New()}

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Warn("HTTP запрос завершился ошибкой")
				return nil
			}
			entry.Debug("HTTP запрос")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:      e,
		service:   reportService,
		schedules: schedules,
		logger:    logger,
	}

	server.setupRoutes()
	return server
}

// Handler returns the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.logger.WithField("address", address).Info("Starting HTTP server")
	err := s.echo.Start(address)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// setupRoutes configures the server routes
func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// API routes
	api := s.echo.Group("/api/v1")
	{
		reports := api.Group("/reports")
		{
			reports.POST("", s.createReport)
			reports.GET("", s.listReports)
			reports.GET("/:name", s.getReport)
			reports.PUT("/:name", s.updateReport)
			reports.DELETE("/:name", s.deleteReport)
			reports.POST("/:name/run", s.runReport)
			reports.GET("/:name/count-sql", s.countSQL)
			reports.POST("/:name/exports", s.createExport)
			reports.GET("/:name/exports", s.listExports)
		}

		exports := api.Group("/exports")
		{
			exports.GET("/:id", s.getExport)
			exports.DELETE("/:id", s.cancelExport)
			exports.GET("/:id/download", s.downloadExport)
			exports.GET("/:id/url", s.exportURL)
		}

		if s.schedules != nil {
			api.GET("/schedules", s.listSchedules)
			api.POST("/schedules/:name/run", s.runSchedule)
		}
	}
}

// healthCheck handles health check requests
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "sqlreport",
	})
}

// statusOf maps a service error to an HTTP status
func statusOf(err error) int {
	switch {
	case service.IsNotFound(err), errors.Is(err, scheduler.ErrScheduleNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDefinitionExists),
		errors.Is(err, service.ErrExportNotReady),
		errors.Is(err, service.ErrExportFinished):
		return http.StatusConflict
	case errors.Is(err, service.ErrQueueFull),
		errors.Is(err, query.ErrConnectionLost):
		return http.StatusServiceUnavailable
	case errors.Is(err, report.ErrInvalidDefinition),
		errors.Is(err, query.ErrUnsupportedCondition),
		errors.Is(err, query.ErrNotSelect),
		errors.Is(err, query.ErrForbiddenStatement),
		errors.Is(err, sqlpool.ErrUnknownPool),
		errors.Is(err, sqlpool.ErrMissingBind),
		errors.Is(err, table.ErrUnknownColumn),
		errors.Is(err, table.ErrGroupKeyMismatch),
		errors.Is(err, table.ErrUnsupportedAggregate),
		errors.Is(err, table.ErrNotNumeric),
		errors.Is(err, table.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes an error response. Internal errors are not exposed to the client.
func (s *Server) fail(c echo.Context, err error, msg string) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error(msg)
		if status == http.StatusInternalServerError {
			return c.JSON(status, map[string]string{"error": msg})
		}
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

// userOf returns the author of the request
func userOf(c echo.Context) string {
	if user := c.Request().Header.Get("X-User"); user != "" {
		return user
	}
	return "anonymous"
}
