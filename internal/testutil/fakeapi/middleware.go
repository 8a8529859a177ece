package fakeapi

import (
	"net/http"
	"strings"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(statusCode int) {
	w.ResponseWriter.WriteHeader(statusCode)
	w.status = statusCode
}

// record remembers every request with the status it got
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Status:        sw.status,
		})
		s.mu.Unlock()
	})
}

// auth lets through only requests with valid bearer token
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		reject := s.rejectStatus
		s.mu.Unlock()

		if reject != 0 {
			renderMessage(w, "Session revoked", reject)
			return
		}

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			renderMessage(w, "Access denied. No token provided", http.StatusUnauthorized)
			return
		}

		userID, err := s.parseToken(token)
		if err != nil {
			renderMessage(w, "Invalid or expired token", http.StatusForbidden)
			return
		}

		s.mu.Lock()
		a, ok := s.accounts[userID]
		s.mu.Unlock()
		if !ok {
			renderMessage(w, "User not found", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), a)))
	})
}
