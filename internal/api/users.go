package api

import (
	"context"
	"net/http"

	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/validate"
)

type LoginRequest struct {
	// Username or email
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token   string         `json:"token"`
	Profile models.Profile `json:"profile"`
}

type SignupRequest struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
}

type SendResetPasswordEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Message-only response most of user endpoints reply with
type messageResponse struct {
	Message string `json:"message"`
}

// Login exchanges identifier and password to credential and profile
// Sent without session guard: there is nothing to guard yet
func (c *Client) Login(ctx context.Context, identifier string, password string) (LoginResponse, error) {
	var resp LoginResponse

	req := LoginRequest{Identifier: identifier, Password: password}
	if err := validate.Struct(req); err != nil {
		return resp, err
	}

	err := c.do(ctx, c.public, http.MethodPost, "/users/login", req, &resp)
	return resp, err
}

func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", err
	}

	var resp messageResponse
	if err := c.do(ctx, c.client, http.MethodPost, "/users/signup", req, &resp); err != nil {
		return "", err
	}

	return withDefault(resp.Message, "Account created successfully!"), nil
}

func (c *Client) SendResetPasswordEmail(ctx context.Context, email string) (string, error) {
	req := SendResetPasswordEmailRequest{Email: email}
	if err := validate.Struct(req); err != nil {
		return "", err
	}

	var resp messageResponse
	if err := c.do(ctx, c.client, http.MethodPost, "/users/send-reset-password-email", req, &resp); err != nil {
		return "", err
	}

	return withDefault(resp.Message, "Reset email sent successfully!"), nil
}

func (c *Client) ResetPassword(ctx context.Context, token string, newPassword string) (string, error) {
	req := ResetPasswordRequest{Token: token, NewPassword: newPassword}
	if err := validate.Struct(req); err != nil {
		return "", err
	}

	var resp messageResponse
	if err := c.do(ctx, c.client, http.MethodPost, "/users/reset-password", req, &resp); err != nil {
		return "", err
	}

	return withDefault(resp.Message, "Password reset successful!"), nil
}

// Profile of the signed-in user
func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, c.client, http.MethodGet, "/users/profile", nil, &profile)
	return profile, err
}

func withDefault(s string, def string) string {
	if s == "" {
		return def
	}
	return s
}
