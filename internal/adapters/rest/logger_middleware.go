package rest

import (
	"net/http"
	"time"

	"real-estate-search-service/internal/contextkeys"
	"real-estate-search-service/internal/core/port"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const traceHeader = "X-Trace-ID"

// requestTraceID берет trace id из заголовка, если это uuid, иначе выдает новый
func requestTraceID(r *http.Request) string {
	if id := r.Header.Get(traceHeader); id != "" {
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
	}
	return uuid.NewString()
}

// LoggerMiddleware кладет в контекст запроса логгер с trace_id и пишет итог запроса.
// Ответы 5xx логируются как Warn.
func LoggerMiddleware(logger port.LoggerPort) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := requestTraceID(r)
			reqLogger := logger.WithFields(port.Fields{"trace_id": traceID})

			ctx := contextkeys.ContextWithTraceID(r.Context(), traceID)
			ctx = contextkeys.ContextWithLogger(ctx, reqLogger)

			w.Header().Set(traceHeader, traceID)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := port.Fields{
				"http_method":   r.Method,
				"http_path":     r.URL.Path,
				"remote_addr":   r.RemoteAddr,
				"status_code":   ww.Status(),
				"bytes_written": ww.BytesWritten(),
				"duration_ms":   time.Since(started).Milliseconds(),
			}
			if ww.Status() >= http.StatusInternalServerError {
				reqLogger.Warn("Request failed", fields)
				return
			}
			reqLogger.Info("Request finished", fields)
		})
	}
}
