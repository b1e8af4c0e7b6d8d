package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/callwave/callwave/pkg/domain"
)

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login exchanges credentials for tokens and stores the session.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*domain.User, error) {
	var resp TokenResponse
	if err := c.anonymous(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("client.Login: empty access token")
	}
	if err := c.store.SignIn(ctx, resp.tokens(c.now(), c.tokenTTL), resp.User); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if resp.User != nil {
		return resp.User, nil
	}
	u, err := c.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return u, nil
}

// Logout revokes the refresh token and clears the stored session. The local
// session is cleared even when the server call fails. The refresh token is
// the credential, so an expired access token never triggers a refresh here.
func (c *Client) Logout(ctx context.Context) error {
	tok, err := c.store.Tokens(ctx)
	if err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	var callErr error
	if tok.RefreshToken != "" {
		callErr = c.anonymous(ctx, http.MethodPost, "/api/auth/logout", map[string]string{"refresh_token": tok.RefreshToken}, nil)
	}
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	if callErr != nil {
		return fmt.Errorf("client.Logout: %w", callErr)
	}
	return nil
}

// Me returns the signed-in user's profile and refreshes the cached copy.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var u domain.User
	if err := c.get(ctx, "/api/me", &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	if err := c.store.SaveUser(ctx, &u); err != nil {
		return nil, fmt.Errorf("client.Me: %w", err)
	}
	return &u, nil
}
