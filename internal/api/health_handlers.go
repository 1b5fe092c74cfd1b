package api

import (
	"context"
	"net/http"
	"time"

	"github.com/vytor/reviewsync/internal/errors"
)

const readinessTimeout = 2 * time.Second

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth is the liveness probe. It never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

// handleReady answers 503 while the store does not respond to a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.pingStore(r.Context()); err != nil {
		handleError(w, r, errors.NewUnavailableError(err))
		return
	}
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ready"})
}

func (s *Server) pingStore(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return s.DB.PingContext(ctx)
}
