// Package session owns the authenticated state of the client: the server
// token and the profile it belongs to. Both are set and cleared together.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/legado-reader/legado-client/internal/auth"
	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/store"
	"github.com/legado-reader/legado-client/internal/validation"
)

// API is the part of the remote client the session store needs.
type API interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error)
	Me(ctx context.Context) (*domain.User, error)
}

// record is the persisted form of a session.
type record struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Store is the session auth store. Readers never observe a token without a
// user or the reverse.
type Store struct {
	kv        store.KV
	api       API
	sealer    *auth.Sealer
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	// writeMu orders a swap with its persistence and notifications.
	writeMu sync.Mutex
	mu      sync.RWMutex
	current domain.Session

	subMu sync.Mutex
	subs  []func(domain.Session)
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New restores the persisted session from kv. A nil sealer stores the
// session as plain JSON. Expired, unreadable or half-populated sessions are
// discarded.
func New(kv store.KV, api API, sealer *auth.Sealer, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		kv:        kv,
		api:       api,
		sealer:    sealer,
		validator: validation.New(),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = s.load()
	return s
}

func (s *Store) load() domain.Session {
	ctx := context.Background()
	data, err := s.kv.Get(ctx, store.KeyAuthSession)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("failed to read session", "error", err)
		}
		return domain.Session{}
	}

	if s.sealer != nil {
		data, err = s.sealer.Open(string(data))
		if err != nil {
			s.logger.Info("discarding unreadable session", "error", err)
			s.evict(ctx)
			return domain.Session{}
		}
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("discarding corrupt session", "error", err)
		s.evict(ctx)
		return domain.Session{}
	}

	sess := domain.NewSession(rec.Token, rec.User)
	if !sess.IsAuthenticated() {
		s.logger.Info("discarding incomplete session")
		s.evict(ctx)
		return domain.Session{}
	}

	if info, err := auth.InspectToken(rec.Token); err == nil && info.Expired(s.now()) {
		s.logger.Info("session token expired", "expired_at", info.ExpiresAt)
		s.evict(ctx)
		return domain.Session{}
	}

	return sess
}

// Current returns a copy of the session.
func (s *Store) Current() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.current.IsAuthenticated() {
		return domain.Session{}
	}
	return domain.NewSession(*s.current.Token, s.current.User)
}

// IsAuthenticated reports whether a token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.IsAuthenticated()
}

// Token returns the bearer token or "". It makes the store a
// remote.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Token == nil {
		return ""
	}
	return *s.current.Token
}

// User returns the logged-in user or nil.
func (s *Store) User() *domain.User {
	return s.Current().User
}

// Login validates the form, authenticates against the server and stores
// the resulting session.
func (s *Store) Login(ctx context.Context, req domain.LoginRequest) (domain.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Session{}, err
	}
	resp, err := s.api.Login(ctx, req)
	if err != nil {
		return domain.Session{}, authError("login failed", err)
	}
	return s.establish(ctx, resp)
}

// Register creates an account and stores the resulting session.
func (s *Store) Register(ctx context.Context, req domain.RegisterRequest) (domain.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Session{}, err
	}
	resp, err := s.api.Register(ctx, req)
	if err != nil {
		return domain.Session{}, authError("registration failed", err)
	}
	return s.establish(ctx, resp)
}

// Logout clears the session and its persisted copy.
func (s *Store) Logout() {
	s.set(context.Background(), domain.Session{}, time.Time{})
}

// Refresh reloads the profile of the current token. A rejected token logs
// the user out.
func (s *Store) Refresh(ctx context.Context) (domain.Session, error) {
	token := s.Token()
	if token == "" {
		return domain.Session{}, domainerrors.ErrUnauthorized
	}

	user, err := s.api.Me(ctx)
	if err != nil {
		if errors.Is(err, remote.ErrUnauthorized) {
			s.logger.Info("server rejected session token, logging out")
			s.Logout()
			return domain.Session{}, domainerrors.ErrSessionExpired.WithCause(err)
		}
		return s.Current(), authError("refresh failed", err)
	}

	// A concurrent logout or login wins over this refresh.
	if s.Token() != token {
		return s.Current(), nil
	}
	sess := domain.NewSession(token, user)
	if !sess.IsAuthenticated() {
		return s.Current(), domainerrors.Internal("server returned no profile")
	}
	s.set(ctx, sess, auth.ExpiryOf(token, 0, s.now()))
	return sess, nil
}

// Subscribe registers fn to be called after every session change.
func (s *Store) Subscribe(fn func(domain.Session)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) establish(ctx context.Context, resp *domain.LoginResponse) (domain.Session, error) {
	if resp == nil {
		return domain.Session{}, domainerrors.Internal("server returned an empty login response")
	}
	sess := domain.NewSession(resp.Token, resp.User)
	if !sess.IsAuthenticated() {
		return domain.Session{}, domainerrors.Internal("server returned an incomplete session")
	}
	s.set(ctx, sess, auth.ExpiryOf(resp.Token, resp.ExpiresIn, s.now()))
	return sess, nil
}

// set swaps the session in one step and persists it. Persistence failures
// are logged; the in-memory session stays authoritative.
func (s *Store) set(ctx context.Context, sess domain.Session, expiresAt time.Time) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	if sess.IsAuthenticated() {
		s.persist(ctx, sess, expiresAt)
	} else {
		s.evict(ctx)
	}

	s.subMu.Lock()
	subs := append([]func(domain.Session)(nil), s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(s.Current())
	}
}

func (s *Store) persist(ctx context.Context, sess domain.Session, expiresAt time.Time) {
	data, err := json.Marshal(record{Token: *sess.Token, User: sess.User})
	if err != nil {
		s.logger.Warn("failed to encode session", "error", err)
		return
	}
	if s.sealer != nil {
		data = []byte(s.sealer.Seal(data, expiresAt))
	}
	if err := s.kv.Set(context.WithoutCancel(ctx), store.KeyAuthSession, data); err != nil {
		s.logger.Warn("failed to persist session", "error", err)
	}
}

func (s *Store) evict(ctx context.Context) {
	err := s.kv.Delete(context.WithoutCancel(ctx), store.KeyAuthSession)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("failed to remove persisted session", "error", err)
	}
}

// authError wraps a remote failure. Rejections by the server are
// unauthorized; a server that could not be reached is unavailable.
func authError(msg string, err error) error {
	var re *remote.RemoteError
	if errors.As(err, &re) {
		if re.Kind == remote.KindTransport && (re.HTTPStatus == 0 || re.HTTPStatus >= 500) {
			return domainerrors.Wrap(err, domainerrors.CodeUnavailable, re.Message)
		}
		return domainerrors.Wrap(err, domainerrors.CodeUnauthorized, re.Message)
	}
	return domainerrors.Wrap(err, domainerrors.CodeUnauthorized, msg)
}
