package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
)

// AuthService wraps the authentication endpoints
type AuthService struct {
	client Requester
}

// NewAuthService creates a new authentication service
func NewAuthService(client Requester) *AuthService {
	return &AuthService{client: client}
}

type credentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Login exchanges username and password for a credential
func (s *AuthService) Login(ctx context.Context, username, password string) (*core.AuthResult, error) {
	req := credentialsRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.AuthResult
	if err := s.client.Post(ctx, api.EndpointLogin, req, &res); err != nil {
		return nil, err
	}
	return checkAuthResult(&res)
}

// Register creates an account and returns its first credential
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*core.AuthResult, error) {
	req := registerRequest{Username: strings.TrimSpace(username), Email: strings.TrimSpace(email), Password: password}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.AuthResult
	if err := s.client.Post(ctx, api.EndpointRegister, req, &res); err != nil {
		return nil, err
	}
	return checkAuthResult(&res)
}

// GuestRegister creates a throwaway account with a generated password
func (s *AuthService) GuestRegister(ctx context.Context) (*core.AuthResult, error) {
	var res core.AuthResult
	if err := s.client.Post(ctx, api.EndpointGuestRegister, nil, &res); err != nil {
		return nil, err
	}
	return checkAuthResult(&res)
}

// ForgotPassword asks the server to send a reset link to email
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*core.MessageResponse, error) {
	req := forgotPasswordRequest{Email: strings.TrimSpace(email)}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Post(ctx, api.EndpointForgotPassword, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me fetches the profile of the stored credential
func (s *AuthService) Me(ctx context.Context) (*core.User, error) {
	var user core.User
	if err := s.client.Get(ctx, api.EndpointMe, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes token on the server
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return core.ErrEmptyToken
	}
	return s.client.Post(ctx, api.EndpointLogout, nil, nil, api.WithBearer(token))
}

func checkAuthResult(res *core.AuthResult) (*core.AuthResult, error) {
	if res.Token == "" {
		return nil, fmt.Errorf("no token in response: %w", core.ErrEmptyToken)
	}
	if err := res.User.Validate(); err != nil {
		return nil, fmt.Errorf("no user in response: %w", err)
	}
	return res, nil
}
