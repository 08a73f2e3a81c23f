package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Incoming request id is kept, a fresh one is generated otherwise
const RequestIDHeader = "X-Request-ID"

type requestLogger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	size, err := w.ResponseWriter.Write(p)
	w.size += size
	return size, err
}

func (w *statusWriter) WriteHeader(statusCode int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Log every request once it is served
// Server errors are logged as errors, client errors as warnings
func LoggerMiddleware(l requestLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			log := l.Info
			switch {
			case sw.status >= http.StatusInternalServerError:
				log = l.Error
			case sw.status >= http.StatusBadRequest:
				log = l.Warn
			}

			log(
				"HTTP request served",
				"request_id", requestID,
				"method", r.Method,
				"uri", r.RequestURI,
				"status", sw.status,
				"size", sw.size,
				"duration", time.Since(start),
			)
		})
	}
}
