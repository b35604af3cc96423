package api

import (
	"context"
	"fmt"
)

// TokenPair holds the bearer credentials issued by the backend. Both tokens
// are persisted in the local config file between CLI invocations.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login authenticates against the backend and attaches the returned access
// token to the client for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	env := Post[TokenPair](ctx, c, "/api/v1/auth/login", loginRequest{Email: email, Password: password}, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if env.Data.AccessToken == "" {
		return nil, fmt.Errorf("login: backend returned no access token")
	}
	c.SetAccessToken(env.Data.AccessToken)
	return &env.Data, nil
}

// RefreshSession exchanges a refresh token for a new token pair and attaches
// the new access token.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*TokenPair, error) {
	env := Post[TokenPair](ctx, c, "/api/v1/auth/refresh", refreshRequest{RefreshToken: refreshToken}, nil)
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	c.SetAccessToken(env.Data.AccessToken)
	return &env.Data, nil
}

// Logout invalidates the server-side session and detaches the local bearer
// token. The token is detached even when the server call fails, so a broken
// backend cannot keep the client authenticated.
func (c *Client) Logout(ctx context.Context) error {
	env := Post[struct{}](ctx, c, "/api/v1/auth/logout", nil, nil)
	c.SetAccessToken("")
	if err := env.Err(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
