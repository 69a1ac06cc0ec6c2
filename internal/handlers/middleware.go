package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(status int) {
	sw.status = status
	sw.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs each request with its status and duration. 5xx responses
// are logged at error level, 4xx at warn, everything else at info.
func RequestLogger(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			entry := logger.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     sw.status,
				"duration":   time.Since(start).Round(time.Microsecond).String(),
				"remote":     r.RemoteAddr,
			})
			switch {
			case sw.status >= http.StatusInternalServerError:
				entry.Error("http request")
			case sw.status >= http.StatusBadRequest:
				entry.Warn("http request")
			default:
				entry.Info("http request")
			}
		})
	}
}
