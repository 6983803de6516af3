package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marcogenualdo/authgate/internal/cache"
	"github.com/marcogenualdo/authgate/internal/config"
	"github.com/marcogenualdo/authgate/internal/httpx"
	"github.com/marcogenualdo/authgate/internal/middleware"
	"github.com/marcogenualdo/authgate/internal/store"
)

// loginFlow is the slice of the authentication flow the router drives.
type loginFlow interface {
	Start(ctx context.Context) (*httpx.Response, error)
	Finish(ctx context.Context, req *http.Request) (*httpx.Response, error)
}

// sessionResolver is the slice of the session layer the router consults.
type sessionResolver interface {
	Resolve(ctx context.Context, req *http.Request) (*store.Session, error)
}

// pinger is what the health endpoint needs from the store.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	cfg        config.Config
	logger     *slog.Logger
	flow       loginFlow
	sessions   sessionResolver
	store      pinger
	cache      cache.Cache
	httpServer *http.Server
	startTime  time.Time
}

func New(cfg config.Config, logger *slog.Logger, flow loginFlow, sessions sessionResolver, store pinger, cache cache.Cache) *Server {
	return &Server{
		cfg:       cfg,
		logger:    logger,
		flow:      flow,
		sessions:  sessions,
		store:     store,
		cache:     cache,
		startTime: time.Now(),
	}
}

// Handler assembles the middleware chain around the dispatcher. The
// dispatcher is the single place responses are written: every handler
// outcome, success or failure, funnels through the same conversion.
func (s *Server) Handler() http.Handler {
	dispatcher := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.route(r)
		if err != nil {
			resp = httpx.ToResponse(err, s.logger)
		}
		resp.Write(w)
	})

	return middleware.Recovery(s.logger)(
		middleware.Logging(s.logger)(
			middleware.SecurityHeaders(dispatcher),
		),
	)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"host", s.cfg.Server.Host,
			"port", s.cfg.Server.Port,
			"base_url", s.cfg.Server.BaseURL,
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig)
		return s.Shutdown()
	}
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("error during server shutdown", "error", err)
		return err
	}

	if err := s.cache.Close(); err != nil {
		s.logger.Error("error closing cache", "error", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}
