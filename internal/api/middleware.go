package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// loggingMiddleware attaches a request-scoped logger carrying the request id
// and logs one line per request with its status, size and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		log := logger.Default().WithFields(map[string]any{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
		})
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		log.Debug("request started")
		next.ServeHTTP(ww, r.WithContext(logger.NewContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log = log.WithFields(map[string]any{
			"status":      status,
			"size":        ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request completed with server error")
		case status >= http.StatusBadRequest:
			log.Warn("request completed with client error")
		default:
			log.Info("request completed")
		}
	})
}

// recoveryMiddleware turns a handler panic into a JSON 500. It must run
// inside loggingMiddleware so the panic is logged with the request id.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.FromContext(r.Context()).Error("panic recovered: %v", rec)
			handleError(w, r, errors.NewInternalError(nil))
		}()
		next.ServeHTTP(w, r)
	})
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware answers 503 with a JSON body once timeout elapses.
func timeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, `{"error":{"code":"UNAVAILABLE","message":"request timeout"}}`)
	}
}
