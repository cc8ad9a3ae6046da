package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/japaniel/kokkai/pkg/dashboard"
	"github.com/japaniel/kokkai/pkg/db"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message"`
	Info    string `json:"info,omitempty"`
}

// Server exposes a Dashboard as JSON.
type Server struct {
	dash   *dashboard.Dashboard
	logger *zap.Logger
}

// New builds the echo instance with every route registered.
func New(dash *dashboard.Dashboard, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{dash: dash, logger: logger}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http.request",
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	s.Setup(e)
	return e
}

// Setup registers the routes on e.
func (s *Server) Setup(e *echo.Echo) {
	e.GET("/health", s.health)

	api := e.Group("/api")
	api.GET("/facets", s.facets)
	api.GET("/report", s.report)
	api.GET("/keywords/:term/examples", s.examples)
	api.POST("/reload", s.reload)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rows":   s.dash.Data.Stats().Rows,
	})
}

func (s *Server) facets(c echo.Context) error {
	f, err := s.dash.Facets()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, f)
}

// filter binds and validates the shared filter query parameters.
func (s *Server) filter(c echo.Context) (db.Filter, error) {
	var p dashboard.FilterParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return db.Filter{}, err
	}
	if err := c.Validate(&p); err != nil {
		return db.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid filter").SetInternal(err)
	}
	f, err := p.Filter()
	if err != nil {
		return db.Filter{}, echo.NewHTTPError(http.StatusBadRequest, "invalid filter").SetInternal(err)
	}
	return f, nil
}

func (s *Server) report(c echo.Context) error {
	f, err := s.filter(c)
	if err != nil {
		return err
	}
	r, err := s.dash.Report(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

type examplesParams struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=50"`
}

func (s *Server) examples(c echo.Context) error {
	term, err := url.PathUnescape(c.Param("term"))
	if err != nil || term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid term")
	}
	var p examplesParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return err
	}
	if err := c.Validate(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid limit").SetInternal(err)
	}
	f, err := s.filter(c)
	if err != nil {
		return err
	}
	ex, err := s.dash.KeywordExamples(term, f, p.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ex)
}

type reloadParams struct {
	Force bool `query:"force"`
}

func (s *Server) reload(c echo.Context) error {
	var p reloadParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &p); err != nil {
		return err
	}
	reloaded, err := s.dash.ReloadIfStale(c.Request().Context(), p.Force)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"reloaded": reloaded,
		"rows":     s.dash.Data.Stats().Rows,
	})
}

// handleError writes err as an ErrorResponse.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	resp := ErrorResponse{Message: "internal server error", Info: err.Error()}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		resp.Message = fmt.Sprint(he.Message)
		resp.Info = ""
		if he.Internal != nil {
			resp.Info = he.Internal.Error()
		}
	} else if errors.Is(err, dashboard.ErrNotLoaded) {
		code = http.StatusServiceUnavailable
		resp.Message = "dataset not loaded"
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error("http.response.error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, resp)
	}
	if werr != nil {
		s.logger.Warn("write error response", zap.Error(werr))
	}
}
