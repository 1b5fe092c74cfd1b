package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(loggingMiddleware)
	r.Use(recoveryMiddleware)
	r.Use(securityHeadersMiddleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errNotFoundRoute(r))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errMethodNotAllowed(r))
	})

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		if s.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.RequestTimeout))
		}
		r.Post("/reviews/batch", s.handleBatchUpdate)
		r.Get("/stats", s.handleStats)

		r.Post("/cards", s.handleRegisterCard)
		r.Get("/cards/due", s.handleDueCards)
		r.Get("/cards/{id}", s.handleGetCard)
		r.Delete("/cards/{id}", s.handleDeleteCard)
		r.Post("/cards/{id}/review", s.handleReviewCard)
		r.Get("/cards/{id}/preview", s.handlePreviewCard)
		r.Get("/cards/{id}/history", s.handleReviewHistory)
	})
	return r
}
