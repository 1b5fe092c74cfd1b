package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	DB             Pinger
	ReviewService  services.ReviewService
	StatsService   services.StatsService
	RequestTimeout time.Duration
}

func (s *Server) handleBatchUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.BatchUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	res, err := s.ReviewService.BatchUpdate(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

type registerCardRequest struct {
	ID string `json:"id"`
}

func (s *Server) handleRegisterCard(w http.ResponseWriter, r *http.Request) {
	var req registerCardRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}
	}

	card, err := s.ReviewService.RegisterCard(r.Context(), req.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/cards/"+card.ID)
	writeJSON(w, r, http.StatusCreated, card)
}

func (s *Server) handleDueCards(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		handleError(w, r, err)
		return
	}

	page, err := s.ReviewService.DueCards(r.Context(), limit, offset)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	card, err := s.ReviewService.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.ReviewService.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reviewCardRequest struct {
	Response    string  `json:"response"`
	TimeSeconds float64 `json:"time_seconds"`
}

func (s *Server) handleReviewCard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req reviewCardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	if req.Response == "" {
		handleError(w, r, errors.NewValidationError("response", "is required"))
		return
	}

	card, err := s.ReviewService.ReviewCard(r.Context(), id, req.Response, req.TimeSeconds)
	if err != nil {
		handleError(w, r, err)
		return
	}
	log.Debug("card reviewed: id=%s, next due=%s", id, card.Scheduling.Due.Format(time.RFC3339))
	writeJSON(w, r, http.StatusOK, card)
}

func (s *Server) handlePreviewCard(w http.ResponseWriter, r *http.Request) {
	preview, err := s.ReviewService.PreviewCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

func (s *Server) handleReviewHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		handleError(w, r, err)
		return
	}
	history, err := s.ReviewService.ReviewHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, history)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.StatsService.GetCardStats(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}
