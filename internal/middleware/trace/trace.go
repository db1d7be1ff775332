package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ledger/internal/log"
	"ledger/internal/metrics"
)

const HeaderRequestID = "X-Request-ID"

type contextKey struct{}

// Middleware assigns a request id, attaches a request-scoped logger to the
// context and records the access log line and HTTP metrics.
type Middleware struct {
	logger    *log.Logger
	extractIP func(*http.Request) string
	detect    func(*http.Request) bool
}

// NewMiddleware creates the middleware. extractIP and detect may be nil.
func NewMiddleware(logger *log.Logger, extractIP func(*http.Request) string, detect func(*http.Request) bool) *Middleware {
	return &Middleware{logger: logger, extractIP: extractIP, detect: detect}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		reqLogger := m.logger.With(log.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = log.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		if m.detect != nil && m.detect(r) {
			reqLogger.WithComponent(log.ComponentSecurity).WarnContext(ctx, "Suspicious request",
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				log.FieldClientIP, clientIP,
				log.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		// r.Pattern is filled in by the ServeMux further down the chain.
		metrics.ObserveHTTP(r.Pattern, r.Method, rw.statusCode, duration)

		fields := log.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithClientIP(clientIP)
		fields[log.FieldRoute] = r.Pattern
		fields[log.FieldDurationHuman] = duration.String()
		log.NewStructuredLogger(reqLogger).LogHTTPEnd(ctx, fields, rw.statusCode, duration.Milliseconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
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

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKey{}).(string); ok {
		return id
	}
	return ""
}
