package server

import (
	"context"
	"net/http"
	"time"

	"github.com/marcogenualdo/authgate/internal/httpx"
)

type healthResponse struct {
	Status   string `json:"status"`
	Uptime   string `json:"uptime"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (s *Server) handleHealth(r *http.Request) (*httpx.Response, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := healthResponse{
		Status: "healthy",
		Uptime: time.Since(s.startTime).String(),
	}

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health: database unreachable", "error", err)
		health.Database = "unreachable"
		health.Status = "degraded"
	} else {
		health.Database = "connected"
	}

	if err := s.cache.Ping(ctx); err != nil {
		s.logger.Warn("health: cache unreachable", "error", err)
		health.Cache = "unreachable"
		health.Status = "degraded"
	} else {
		health.Cache = "connected"
	}

	resp, err := httpx.JSON(health)
	if err != nil {
		return nil, err
	}
	if health.Status != "healthy" {
		resp.WithStatus(http.StatusServiceUnavailable)
	}
	return resp, nil
}
