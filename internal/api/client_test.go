package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
)

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMessage string
	}{
		{"json message", http.StatusBadRequest, "application/json", `{"message": "Insufficient balance"}`, "Insufficient balance"},
		{"json error", http.StatusConflict, "application/json", `{"error": "User already exists"}`, "User already exists"},
		{"message wins over error", http.StatusBadRequest, "application/json", `{"message": "m", "error": "e"}`, "m"},
		{"empty message falls back to error", http.StatusBadRequest, "application/json", `{"message": "", "error": "e"}`, "e"},
		{"json string", http.StatusBadRequest, "application/json", `"The receiver account does not exist!"`, "The receiver account does not exist!"},
		{"plain text", http.StatusBadGateway, "text/plain", "upstream is down\n", "upstream is down"},
		{"empty body", http.StatusInternalServerError, "text/plain", "", "Internal Server Error"},
		{"json without message", http.StatusNotFound, "application/json", `{"code": 7}`, "Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL})
			_, err := c.Profile(t.Context())

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.wantMessage, apiErr.Message)
			require.True(t, IsStatus(err, tt.status))
			require.NotErrorIs(t, err, apperrors.ErrSessionRejected)
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	require.ErrorIs(t, &Error{StatusCode: http.StatusUnauthorized}, apperrors.ErrSessionRejected)
	require.ErrorIs(t, &Error{StatusCode: http.StatusForbidden}, apperrors.ErrSessionRejected)
	require.NotErrorIs(t, &Error{StatusCode: http.StatusBadRequest}, apperrors.ErrSessionRejected)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.Profile(t.Context())

	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
	require.NotErrorIs(t, err, apperrors.ErrSessionRejected)
}

func TestClient_BaseURL(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL + "/api/"})
	_, err := c.Profile(t.Context())

	require.NoError(t, err)
	require.Equal(t, "/api/users/profile", path)
}
