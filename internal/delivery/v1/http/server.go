package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
)

// Server — HTTP-вход прилавка. Run и Serve возвращают nil после штатного Stop.
type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

func NewServer(handler http.Handler, cfg *cfg.HTTPConfig, logger logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		logger: logger,
	}
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}

func (s *Server) Run() error {
	lis, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return e.Wrap("Server.Run", err)
	}

	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Infof("HTTP server listening on %s", lis.Addr())

	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return e.Wrap("Server.Serve", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Errorf(err, "HTTP server shutdown interrupted, closing connections")
		_ = s.httpServer.Close()
		return e.Wrap("Server.Stop", err)
	}

	s.logger.Infof("HTTP server stopped")
	return nil
}
