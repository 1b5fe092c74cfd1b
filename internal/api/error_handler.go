package api

import (
	stderrors "errors"
	"net/http"

	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/logger"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// handleError writes err as {"error":{"code","message"}}. Errors that are
// not an AppError become a 500 without leaking their text.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		appErr = errors.NewInternalError(err)
	}

	log := logger.FromContext(r.Context()).WithField("code", appErr.Code)
	switch {
	case appErr.Status >= http.StatusInternalServerError:
		log.Error("request failed: %v", appErr)
	case appErr.Status >= http.StatusBadRequest:
		log.Warn("request rejected: %v", appErr)
	}

	if appErr.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, r, appErr.Status, errorResponse{Error: errorBody{Code: appErr.Code, Message: appErr.Message}})
}
