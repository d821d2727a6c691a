package remote

import (
	"context"
	"net/http"

	"github.com/legado-reader/legado-client/internal/domain"
)

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	return send[*domain.LoginResponse](ctx, c, http.MethodPost, "/api/v1/auth/login", nil, req).Unwrap()
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error) {
	return send[*domain.LoginResponse](ctx, c, http.MethodPost, "/api/v1/auth/register", nil, req).Unwrap()
}

// Me returns the profile of the token's owner.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	return get[*domain.User](ctx, c, "/api/v1/auth/me", nil).Unwrap()
}
