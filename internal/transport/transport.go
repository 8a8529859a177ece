package transport

import (
	"net"
	"net/http"
	"time"
)

// Middleware decorates a round tripper
type Middleware func(next http.RoundTripper) http.RoundTripper

// RoundTripperFunc allows to use a function as http.RoundTripper
type RoundTripperFunc func(r *http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain applies middlewares in the given order: m1(m2(...(rt)))
// So the first one sees the request first and the response last
func Chain(rt http.RoundTripper, mds ...Middleware) http.RoundTripper {
	for i := len(mds) - 1; i >= 0; i-- {
		rt = mds[i](rt)
	}
	return rt
}

// NewHTTPTransport creates transport tuned for talking to the wallet backend
func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   4,
		ForceAttemptHTTP2:     true,
	}
}
