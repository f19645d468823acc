// Package trace tags every request with an ID and records how it ended.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/log"
	"kakeibo/internal/metrics"
)

type contextKey struct{}

const HeaderRequestID = "X-Request-ID"

// Middleware logs and measures requests.
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *log.StructuredLogger
	metrics   *metrics.Metrics
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger, m *metrics.Metrics) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		logger:    log.NewStructuredLogger(logger),
		metrics:   m,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldRequestID, requestID))
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		// The mux fills in Pattern on this request; unmatched paths are
		// grouped so they cannot blow up metric cardinality.
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		m.metrics.ObserveRequest(r.Method, route, rw.statusCode, elapsed)
		m.logger.LogHTTPEnd(ctx, r, route, rw.statusCode, elapsed.Milliseconds(), clientIP)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GetRequestID returns the request ID stored by the middleware.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
