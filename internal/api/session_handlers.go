package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/legado-reader/legado-client/internal/domain"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/session",
		Summary:     "Get session",
		Description: "Reports whether the client is signed in and as whom",
		Tags:        []string{"Session"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/login",
		Summary:     "Login",
		Description: "Signs in to the legado server. The token stays in the client",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{s.limitSession},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/session/register",
		Summary:     "Register",
		Description: "Creates an account on the legado server and signs in with it",
		Tags:        []string{"Session"},
		Middlewares: huma.Middlewares{s.limitSession},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodDelete,
		Path:        "/api/v1/session",
		Summary:     "Logout",
		Description: "Signs out. Reader settings are kept",
		Tags:        []string{"Session"},
	}, s.handleLogout)
}

// === DTOs ===

// SessionResponse describes the session without exposing the token.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated" doc:"Whether the client holds a token"`
	User          *domain.User `json:"user,omitempty" doc:"Signed-in user"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// LoginInput wraps the login form for Huma.
type LoginInput struct {
	Body domain.LoginRequest
}

// RegisterInput wraps the registration form for Huma.
type RegisterInput struct {
	Body domain.RegisterRequest
}

func sessionResponse(sess domain.Session) *SessionOutput {
	return &SessionOutput{Body: SessionResponse{
		Authenticated: sess.Token != nil,
		User:          sess.User,
	}}
}

// === Handlers ===

func (s *Server) handleGetSession(_ context.Context, _ *struct{}) (*SessionOutput, error) {
	return sessionResponse(s.services.Session.Current()), nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*SessionOutput, error) {
	sess, err := s.services.Login.Login(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess), nil
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*SessionOutput, error) {
	sess, err := s.services.Login.Register(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return sessionResponse(sess), nil
}

func (s *Server) handleLogout(_ context.Context, _ *struct{}) (*MessageOutput, error) {
	s.services.Settings.Logout()
	return message("logged out"), nil
}
