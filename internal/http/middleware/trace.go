package middleware

import (
	"log"
	"net/http"
	"time"
)

// statusRecorder captures the response code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Trace writes one access-log line per API request. Document text never
// reaches the log, only method, path, status and timing.
func Trace(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)

			logger.Printf(
				"%s %s -> %d in %dms request_id=%s",
				r.Method,
				r.URL.Path,
				recorder.status,
				time.Since(start).Milliseconds(),
				GetRequestID(r.Context()),
			)
		})
	}
}
