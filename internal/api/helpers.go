package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/logger"
)

const maxBodyBytes = 4 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Error("failed to encode response: %v", err)
	}
}

// decodeJSON reads a single JSON document from the request body. Unknown
// fields are ignored so that newer clients can talk to older servers.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.Is(err, io.EOF):
			return errors.NewBadRequestError("request body is required")
		case stderrors.As(err, &tooLarge):
			return errors.NewPayloadTooLargeError(tooLarge.Limit)
		default:
			return errors.NewBadRequestError("invalid JSON: " + err.Error())
		}
	}
	if dec.More() {
		return errors.NewBadRequestError("request body must contain a single JSON document")
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(name, "must be an integer")
	}
	return v, nil
}

func errNotFoundRoute(r *http.Request) error {
	return errors.NewNotFoundError("route", r.Method+" "+r.URL.Path)
}

func errMethodNotAllowed(r *http.Request) error {
	return errors.NewMethodNotAllowedError(r.Method, r.URL.Path)
}
