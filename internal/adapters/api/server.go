// Package api exposes the classification service over HTTP
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const loggerKey = "logger"

// Server is the HTTP front of the classification service
type Server struct {
	echo    *echo.Echo
	svc     Service
	address string
	logger  *zap.Logger
}

// NewServer creates the server with its middleware and routes in place
func NewServer(svc Service, address string, logger *zap.Logger) *Server {
	s := &Server{
		echo:    echo.New(),
		svc:     svc,
		address: address,
		logger:  logger,
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Use(s.loggingMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	s.setupRoutes()
	return s
}

// loggingMiddleware logs every request with zap
func (s *Server) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Set(loggerKey, s.logger)

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info("HTTP request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("remote_ip", c.RealIP()),
				zap.Int("status", res.Status),
				zap.Int64("latency_ms", time.Since(start).Milliseconds()),
				zap.String("user_agent", req.UserAgent()))

			return err
		}
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", HealthHandler())

	s.echo.POST("/predict", PredictHandler(s.svc))
	s.echo.POST("/fetch-emails", FetchEmailsHandler(s.svc))
	s.echo.GET("/history", HistoryHandler(s.svc))
	s.echo.POST("/delete-history", DeleteHistoryHandler(s.svc))
	s.echo.POST("/clear-history", ClearHistoryHandler(s.svc))
	s.echo.POST("/graph", GraphHandler(s.svc))
	s.echo.GET("/graph", GraphHandler(s.svc))
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", zap.String("address", s.address))
	if err := s.echo.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.echo.Shutdown(ctx)
}
