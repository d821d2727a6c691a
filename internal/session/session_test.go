package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legado-reader/legado-client/internal/auth"
	"github.com/legado-reader/legado-client/internal/domain"
	domainerrors "github.com/legado-reader/legado-client/internal/errors"
	"github.com/legado-reader/legado-client/internal/logger"
	"github.com/legado-reader/legado-client/internal/remote"
	"github.com/legado-reader/legado-client/internal/store"
)

// fakeAPI answers auth calls from canned values.
type fakeAPI struct {
	mu       sync.Mutex
	resp     *domain.LoginResponse
	err      error
	me       *domain.User
	meErr    error
	lastUser string
}

func (f *fakeAPI) Login(_ context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = req.Username
	return f.resp, f.err
}

func (f *fakeAPI) Register(_ context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = req.Username
	return f.resp, f.err
}

func (f *fakeAPI) Me(context.Context) (*domain.User, error) {
	return f.me, f.meErr
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "1",
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func testSealer(t *testing.T) *auth.Sealer {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	s, err := auth.NewSealer(key, "device-1")
	require.NoError(t, err)
	return s
}

func okResponse(token string) *domain.LoginResponse {
	return &domain.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: 86400,
		User:      &domain.User{ID: 1, Username: "ann", Enabled: true, Roles: "USER"},
	}
}

func assertPaired(t *testing.T, s *Store) {
	t.Helper()
	cur := s.Current()
	assert.True(t, cur.Valid(), "token and user must be set together")
	assert.Equal(t, cur.Token != nil, s.IsAuthenticated())
}

func TestLogin_StoresSession(t *testing.T) {
	kv := store.NewMemory()
	token := signedToken(t, time.Now().Add(24*time.Hour))
	api := &fakeAPI{resp: okResponse(token)}
	s := New(kv, api, testSealer(t), logger.Discard())

	assert.False(t, s.IsAuthenticated())
	assertPaired(t, s)

	sess, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, sess.Token)
	assert.Equal(t, token, *sess.Token)
	assert.Equal(t, "ann", sess.User.Username)
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, token, s.Token())
	assertPaired(t, s)

	raw, err := kv.Get(context.Background(), store.KeyAuthSession)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), token, "persisted session is sealed")
	assert.Regexp(t, `^v4\.local\.`, string(raw))
}

func TestLogin_Validation(t *testing.T) {
	api := &fakeAPI{resp: okResponse("tok")}
	s := New(store.NewMemory(), api, nil, logger.Discard())

	tests := []struct {
		name  string
		req   domain.LoginRequest
		field string
	}{
		{"missing username", domain.LoginRequest{Password: "secret1"}, "username"},
		{"short password", domain.LoginRequest{Username: "ann", Password: "123"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(context.Background(), tt.req)
			require.ErrorIs(t, err, domainerrors.ErrValidation)

			var de *domainerrors.Error
			require.ErrorAs(t, err, &de)
			assert.Contains(t, de.Fields, tt.field)
			assert.Empty(t, api.lastUser, "invalid form never reaches the server")
			assert.False(t, s.IsAuthenticated())
		})
	}
}

func TestLogin_RemoteFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 401, "message": "bad credentials"})
	}))
	t.Cleanup(srv.Close)

	client, err := remote.New(remote.Config{BaseURL: srv.URL}, logger.Discard())
	require.NoError(t, err)
	s := New(store.NewMemory(), client, nil, logger.Discard())

	_, err = s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "wrong-pass"})
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	require.ErrorIs(t, err, remote.ErrUnauthorized)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.False(t, s.IsAuthenticated())
	assertPaired(t, s)
}

func TestLogin_UnreachableIsUnavailable(t *testing.T) {
	api := &fakeAPI{err: &remote.RemoteError{Kind: remote.KindTransport, Op: "POST /api/v1/auth/login", Message: "server unreachable"}}
	s := New(store.NewMemory(), api, nil, logger.Discard())

	_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.ErrorIs(t, err, domainerrors.ErrUnavailable)
}

func TestLogin_IncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		resp *domain.LoginResponse
	}{
		{"nil response", nil},
		{"token without user", &domain.LoginResponse{Token: "tok"}},
		{"user without token", &domain.LoginResponse{User: &domain.User{ID: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(store.NewMemory(), &fakeAPI{resp: tt.resp}, nil, logger.Discard())

			_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
			require.ErrorIs(t, err, domainerrors.ErrInternal)
			assert.False(t, s.IsAuthenticated())
			assertPaired(t, s)
		})
	}
}

func TestRegister(t *testing.T) {
	api := &fakeAPI{resp: okResponse("tok")}
	s := New(store.NewMemory(), api, nil, logger.Discard())

	_, err := s.Register(context.Background(), domain.RegisterRequest{Username: "ann", Password: "secret1", Email: "not-an-email"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	sess, err := s.Register(context.Background(), domain.RegisterRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, "ann", api.lastUser)
}

func TestLogout(t *testing.T) {
	kv := store.NewMemory()
	s := New(kv, &fakeAPI{resp: okResponse("tok")}, nil, logger.Discard())
	_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)

	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.User())
	assertPaired(t, s)

	_, err = kv.Get(context.Background(), store.KeyAuthSession)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRestore(t *testing.T) {
	kv := store.NewMemory()
	sealer := testSealer(t)
	token := signedToken(t, time.Now().Add(time.Hour))

	first := New(kv, &fakeAPI{resp: okResponse(token)}, sealer, logger.Discard())
	_, err := first.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)

	restored := New(kv, &fakeAPI{}, sealer, logger.Discard())
	assert.True(t, restored.IsAuthenticated())
	assert.Equal(t, token, restored.Token())
	assert.Equal(t, "ann", restored.User().Username)
}

func TestRestore_DiscardsBadSessions(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		stored func(t *testing.T) []byte
		sealer bool
	}{
		{
			name: "expired jwt",
			stored: func(t *testing.T) []byte {
				data, _ := json.Marshal(record{Token: signedToken(t, now.Add(-time.Minute)), User: &domain.User{ID: 1}})
				return data
			},
		},
		{
			name: "token without user",
			stored: func(*testing.T) []byte {
				return []byte(`{"token":"abc","user":null}`)
			},
		},
		{
			name: "user without token",
			stored: func(*testing.T) []byte {
				return []byte(`{"token":"","user":{"id":1,"username":"ann"}}`)
			},
		},
		{
			name: "corrupt json",
			stored: func(*testing.T) []byte {
				return []byte(`{"token":`)
			},
		},
		{
			name:   "blob sealed for another device",
			sealer: true,
			stored: func(t *testing.T) []byte {
				key := make([]byte, 32)
				for i := range key {
					key[i] = byte(i)
				}
				other, err := auth.NewSealer(key, "device-2")
				require.NoError(t, err)
				return []byte(other.Seal([]byte(`{"token":"abc","user":{"id":1}}`), time.Time{}))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := store.NewMemory()
			require.NoError(t, kv.Set(context.Background(), store.KeyAuthSession, tt.stored(t)))

			var sealer *auth.Sealer
			if tt.sealer {
				sealer = testSealer(t)
			}
			s := New(kv, &fakeAPI{}, sealer, logger.Discard(), WithClock(func() time.Time { return now }))

			assert.False(t, s.IsAuthenticated())
			assertPaired(t, s)
			_, err := kv.Get(context.Background(), store.KeyAuthSession)
			assert.ErrorIs(t, err, store.ErrNotFound, "bad session is evicted")
		})
	}
}

func TestRestore_OpaqueTokenKept(t *testing.T) {
	kv := store.NewMemory()
	require.NoError(t, kv.Set(context.Background(), store.KeyAuthSession,
		[]byte(`{"token":"opaque-token","user":{"id":3,"username":"bo"}}`)))

	s := New(kv, &fakeAPI{}, nil, logger.Discard())
	assert.Equal(t, "opaque-token", s.Token())
}

func TestRefresh(t *testing.T) {
	t.Run("updates user and keeps token", func(t *testing.T) {
		api := &fakeAPI{resp: okResponse("tok"), me: &domain.User{ID: 1, Username: "ann", Nickname: "Annie"}}
		s := New(store.NewMemory(), api, nil, logger.Discard())
		_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
		require.NoError(t, err)

		sess, err := s.Refresh(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Annie", sess.User.DisplayName())
		assert.Equal(t, "tok", s.Token())
	})

	t.Run("401 logs out", func(t *testing.T) {
		api := &fakeAPI{resp: okResponse("tok"), meErr: remote.ErrUnauthorized}
		s := New(store.NewMemory(), api, nil, logger.Discard())
		_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
		require.NoError(t, err)

		_, err = s.Refresh(context.Background())
		require.ErrorIs(t, err, domainerrors.ErrSessionExpired)
		assert.False(t, s.IsAuthenticated())
		assertPaired(t, s)
	})

	t.Run("other failures keep the session", func(t *testing.T) {
		api := &fakeAPI{resp: okResponse("tok"), meErr: errors.New("boom")}
		s := New(store.NewMemory(), api, nil, logger.Discard())
		_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
		require.NoError(t, err)

		_, err = s.Refresh(context.Background())
		require.Error(t, err)
		assert.True(t, s.IsAuthenticated())
	})

	t.Run("not logged in", func(t *testing.T) {
		s := New(store.NewMemory(), &fakeAPI{}, nil, logger.Discard())
		_, err := s.Refresh(context.Background())
		require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	})
}

func TestPersistFailure_KeepsSession(t *testing.T) {
	kv := store.NewMemory()
	kv.FailWrites = errors.New("disk full")
	s := New(kv, &fakeAPI{resp: okResponse("tok")}, nil, logger.Discard())

	_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)
	assert.True(t, s.IsAuthenticated())
}

func TestConcurrentLoginLogout_NeverMixed(t *testing.T) {
	s := New(store.NewMemory(), &fakeAPI{resp: okResponse("tok")}, nil, logger.Discard())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			if i%2 == 0 {
				_, _ = s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
			} else {
				s.Logout()
			}
		})
		wg.Go(func() {
			cur := s.Current()
			assert.True(t, cur.Valid())
		})
	}
	wg.Wait()
	assertPaired(t, s)
}

func TestSubscribe(t *testing.T) {
	s := New(store.NewMemory(), &fakeAPI{resp: okResponse("tok")}, nil, logger.Discard())

	var seen []bool
	s.Subscribe(func(sess domain.Session) { seen = append(seen, sess.IsAuthenticated()) })

	_, err := s.Login(context.Background(), domain.LoginRequest{Username: "ann", Password: "secret1"})
	require.NoError(t, err)
	s.Logout()

	assert.Equal(t, []bool{true, false}, seen)
}
