package transport

import (
	"net/http"
	"time"
)

type logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Logger logs every request sent and the outcome
func Logger(l logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()

			resp, err := next.RoundTrip(r)
			if err != nil {
				l.Warn(
					"HTTP request failed",
					"method", r.Method,
					"url", r.URL.Redacted(),
					"request_id", r.Header.Get(HeaderRequestID),
					"duration", time.Since(start),
					"error", err,
				)
				return resp, err
			}

			l.Info(
				"sent HTTP request",
				"method", r.Method,
				"url", r.URL.Redacted(),
				"request_id", r.Header.Get(HeaderRequestID),
				"duration", time.Since(start),
				"status", resp.StatusCode,
			)
			return resp, nil
		})
	}
}
