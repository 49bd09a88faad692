// Package server assembles the HTTP surface of the relay.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/tzefoong/relaybot/internal/profile"
	apiv1 "github.com/tzefoong/relaybot/server/router/api/v1"
	"github.com/tzefoong/relaybot/server/relay"
	"github.com/tzefoong/relaybot/store"
)

// Server is the HTTP front of the relay pipeline.
type Server struct {
	profile *profile.Profile
	echo    *echo.Echo
	logger  *slog.Logger

	Pipeline *relay.Pipeline
}

// New builds the server, pipeline included.
func New(p *profile.Profile, st *store.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pipeline, err := relay.NewPipeline(p, st, logger)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())

	apiv1.NewAPIV1Service(p, st, pipeline).Register(e)

	return &Server{
		profile:  p,
		echo:     e,
		logger:   logger,
		Pipeline: pipeline,
	}, nil
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	s.logger.Info("relay server starting",
		"address", address,
		"version", s.profile.Version,
		"mode", s.profile.Mode)
	return s.echo.Start(address)
}

// Shutdown drains in-flight requests with a grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("relay server stopped")
	return nil
}
