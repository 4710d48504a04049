package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/upb/voiceme/internal/observability"
	"go.uber.org/zap"
)

// maxIncomingRequestIDLength caps client-supplied IDs before they reach logs and the database
const maxIncomingRequestIDLength = 64

// RequestID assigns every request an ID, reusing a well-formed incoming
// X-Request-ID, and echoes it on the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" || len(requestID) > maxIncomingRequestIDLength {
			requestID = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// RequestLogger logs one line per request and stores a request-scoped logger
// in the context for downstream services
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := GetRequestIDFromContext(r.Context())
			reqLogger := logger.With(zap.String("request_id", requestID))

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := observability.ContextWithLogger(r.Context(), reqLogger)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("remote_addr", r.RemoteAddr),
				}
				if status >= http.StatusInternalServerError {
					reqLogger.Warn("request completed", fields...)
					return
				}
				reqLogger.Info("request completed", fields...)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
