package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
	"github.com/nkiryanov/fuowallet/internal/logger"
)

const defaultTimeout = 15 * time.Second

// Error returned by wallet backend
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status: %d, message: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is see rejected session
func (e *Error) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.ErrSessionRejected
	default:
		return nil
	}
}

type Config struct {
	// Backend address, e.g. http://localhost:8080/api
	BaseURL string

	// Transport for calls on behalf of signed-in user, normally guarded by session
	Transport http.RoundTripper

	// Transport for sign in. Has to be without session guard
	PublicTransport http.RoundTripper

	// Per-request timeout
	Timeout time.Duration

	Logger logger.Logger
}

// Client of the wallet backend
type Client struct {
	baseURL string
	timeout time.Duration

	client *http.Client
	public *http.Client
	logger logger.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.PublicTransport == nil {
		cfg.PublicTransport = http.DefaultTransport
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  &http.Client{Transport: cfg.Transport},
		public:  &http.Client{Transport: cfg.PublicTransport},
		logger:  cfg.Logger,
	}
}

// do sends request with json body and decodes json response into out (if not nil)
func (c *Client) do(ctx context.Context, client *http.Client, method string, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		c.logger.Debug("Backend returned error", "method", method, "path", path, "status_code", apiErr.StatusCode, "message", apiErr.Message)
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("Failed to decode response", "method", method, "path", path, "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Backend reports errors in many ways: {"message"}, {"error"}, plain or json string
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		apiErr.Message = http.StatusText(resp.StatusCode)
		return apiErr
	}

	var obj struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	var str string
	objErr := json.Unmarshal(raw, &obj)

	switch {
	case objErr == nil && obj.Message != "":
		apiErr.Message = obj.Message
	case objErr == nil && obj.Error != "":
		apiErr.Message = obj.Error
	case json.Unmarshal(raw, &str) == nil && str != "":
		apiErr.Message = str
	case !json.Valid(raw):
		apiErr.Message = strings.TrimSpace(string(raw))
	default:
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

// IsStatus reports whether err is backend error with the status code
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
