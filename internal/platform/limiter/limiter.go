package limiter

import (
	"net/http"

	"golang.org/x/sync/semaphore"
)

// Middleware returns chi-compatible middleware that caps the number of
// requests served concurrently at max. A request beyond the cap waits for a
// free slot; if its context ends while waiting (client gone, server
// shutdown), it is answered with 503 instead of a slot.
func Middleware(max int64) func(next http.Handler) http.Handler {
	sem := semaphore.NewWeighted(max)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sem.Acquire(r.Context(), 1); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			defer sem.Release(1)
			next.ServeHTTP(w, r)
		})
	}
}
