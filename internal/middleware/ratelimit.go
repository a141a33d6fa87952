package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// WebhookRateLimit limits inbound webhook deliveries per source IP. Green API
// retries on non-200, so the limit is generous and the handler never rejects
// on parse errors anyway.
func WebhookRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

// APIRateLimit limits operator API requests per authenticated operator,
// falling back to IP for unauthenticated requests.
func APIRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if operator := GetOperatorID(r.Context()); operator != "" {
				return operator, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(rateLimitExceeded),
	)
}

func rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
