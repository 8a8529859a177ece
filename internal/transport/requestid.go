package transport

import (
	"net/http"

	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// RequestID tags request with unique id unless caller set one
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(HeaderRequestID) != "" {
				return next.RoundTrip(r)
			}

			// RoundTripper must not modify the request
			r = r.Clone(r.Context())
			r.Header.Set(HeaderRequestID, uuid.NewString())

			return next.RoundTrip(r)
		})
	}
}
