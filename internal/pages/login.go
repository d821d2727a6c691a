package pages

import (
	"context"
	"log/slog"
	"strings"

	"github.com/legado-reader/legado-client/internal/domain"
	"github.com/legado-reader/legado-client/internal/session"
)

// Login holds the login and registration forms.
type Login struct {
	noticeBoard

	session *session.Store
	logger  *slog.Logger
}

// NewLogin creates the login page.
func NewLogin(sess *session.Store, logger *slog.Logger) *Login {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Login{session: sess, logger: logger}
}

// Login signs in with req.
func (p *Login) Login(ctx context.Context, req domain.LoginRequest) (domain.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	sess, err := p.session.Login(ctx, req)
	if err != nil {
		return domain.Session{}, p.fail(err)
	}
	p.DismissNotice()
	p.logger.Info("logged in", "username", sess.User.Username)
	return sess, nil
}

// Register creates an account and signs in with it.
func (p *Login) Register(ctx context.Context, req domain.RegisterRequest) (domain.Session, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	sess, err := p.session.Register(ctx, req)
	if err != nil {
		return domain.Session{}, p.fail(err)
	}
	p.DismissNotice()
	p.logger.Info("account registered", "username", sess.User.Username)
	return sess, nil
}
