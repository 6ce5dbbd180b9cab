// Package api exposes the workflow over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-go-golems/agentchain/pkg/inference/invoker"
	"github.com/go-go-golems/agentchain/pkg/turns"
	"github.com/go-go-golems/agentchain/pkg/workflow"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// Runner is the part of the workflow the server needs.
type Runner interface {
	Run(ctx context.Context, in workflow.Input) (*workflow.Result, error)
}

// Server holds the dependencies for the API server.
type Server struct {
	runner Runner
}

func NewServer(runner Runner) *Server {
	return &Server{runner: runner}
}

// RunResponse is a finished run plus its full conversation history.
type RunResponse struct {
	*workflow.Result
	History []turns.Block `json:"history"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	RunID string `json:"run_id,omitempty"`
	Stage string `json:"stage,omitempty"`
}

// Echo builds the router with the standard middleware stack.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	// run spans nest under the request span
	e.Use(otelecho.Middleware("agentchain"))
	e.Use(requestLogger())

	e.GET("/healthz", s.Health)
	g := e.Group("/api/v1")
	g.POST("/runs", s.CreateRun)
	return e
}

// Health reports liveness.
// (GET /healthz)
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// CreateRun executes one workflow run synchronously.
// (POST /api/v1/runs)
func (s *Server) CreateRun(c echo.Context) error {
	var in workflow.Input
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
	}
	if strings.TrimSpace(in.InputAsText) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: workflow.ErrEmptyInput.Error()})
	}

	res, err := s.runner.Run(c.Request().Context(), in)
	if err != nil {
		return c.JSON(statusFor(err), errorResponse(err))
	}
	return c.JSON(http.StatusOK, RunResponse{Result: res, History: res.History.Blocks()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, invoker.ErrNoOutput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func errorResponse(err error) ErrorResponse {
	ret := ErrorResponse{Error: err.Error()}
	var runErr *workflow.RunError
	if errors.As(err, &runErr) {
		ret.RunID = runErr.RunID
		ret.Stage = runErr.Stage
	}
	return ret
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("elapsed", time.Since(start)).
				Msg("http request")
			return nil
		}
	}
}
