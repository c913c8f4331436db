// Package httpapi exposes the session operations over HTTP. Callers get an
// identity token from POST /identity and present it on every operation.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Xausdorf/presentation-poll/internal/gateway/clock"
	"github.com/Xausdorf/presentation-poll/internal/usecase"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	cfg     Config
	e       *echo.Echo
	session *usecase.Session
	clock   *clock.Clock
	logger  *slog.Logger
}

func NewServer(cfg Config, session *usecase.Session, clk *clock.Clock, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		e:       echo.New(),
		session: session,
		clock:   clk,
		logger:  logger.With("host", "http"),
	}
	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.Use(middleware.Recover())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	s.e.POST("/identity", s.handleIdentity)
	s.e.GET("/state", s.handleState)
	s.e.GET("/tables", s.handleTables)
	s.e.GET("/polls/:id/results", s.handleResults)

	g := s.e.Group("/reducers", s.requireIdentity)
	g.POST("/:name", s.handleReducer)
}

// Handler is the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.e
}

// Start blocks until the server stops. It returns nil after Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.cfg.Addr)
	if err := s.e.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) handleState(c echo.Context) error {
	state, err := s.session.Presentation(c.Request().Context())
	if err != nil {
		return s.fail(c, "state", "", err)
	}
	return c.JSON(http.StatusOK, state)
}

func (s *Server) handleTables(c echo.Context) error {
	tables, err := s.session.Tables(c.Request().Context())
	if err != nil {
		return s.fail(c, "tables", "", err)
	}
	return c.JSON(http.StatusOK, tables)
}

func (s *Server) handleResults(c echo.Context) error {
	pollID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid poll id"})
	}
	res, err := s.session.Results(c.Request().Context(), pollID)
	if err != nil {
		return s.fail(c, "results", "", err)
	}
	return c.JSON(http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrPollInactive),
		errors.Is(err, usecase.ErrInvalidTransition),
		errors.Is(err, usecase.ErrAlreadyInitialized):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c echo.Context, op, caller string, err error) error {
	status := statusFor(err)
	log := s.logger.With("op", op, "caller", caller, "status", status)
	if status == http.StatusInternalServerError {
		log.Error("operation failed", "error", err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	log.Info("operation rejected", "error", err)
	return c.JSON(status, echo.Map{"error": err.Error()})
}
