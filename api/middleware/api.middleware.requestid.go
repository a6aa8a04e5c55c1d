// FilePath: api/middleware/api.middleware.requestid.go
package middleware

import (
	"net/http"
	"time"

	nuts "github.com/vaudience/go-nuts"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags every response with a request id (honoring one supplied
// by the caller) and logs the request with its duration.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = nuts.NID("req", 12)
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		next.ServeHTTP(w, r)
		nuts.L.Infof("[API] %s %s %s (%v)", id, r.Method, r.URL.Path, time.Since(start))
	})
}
