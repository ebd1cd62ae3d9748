package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

type MockPeopleStore struct {
	mock.Mock
}

func (m *MockPeopleStore) Get(ctx context.Context, email string) (*people.Person, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Person), args.Error(1)
}

func (m *MockPeopleStore) CreateWithPassword(ctx context.Context, req *people.CreatePersonRequest, hash string) (*people.Person, error) {
	args := m.Called(ctx, req, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*people.Person), args.Error(1)
}

var tokenNow = time.Date(2024, 10, 2, 9, 0, 0, 0, time.UTC)

func newTestTokens(t *testing.T, secret string) *TokenManager {
	m, err := NewTokenManager(TokenConfig{
		Secret: secret,
		Issuer: "journal",
		TTL:    time.Hour,
		Now:    func() time.Time { return tokenNow },
	})
	require.NoError(t, err)
	return m
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestTokens(t, "s3cret")

	token, exp, err := m.Issue("jl@nyu.edu")
	require.NoError(t, err)
	assert.Equal(t, tokenNow.Add(time.Hour), exp)

	email, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "jl@nyu.edu", email)
}

func TestTokenRejections(t *testing.T) {
	m := newTestTokens(t, "s3cret")
	token, _, err := m.Issue("jl@nyu.edu")
	require.NoError(t, err)

	_, err = newTestTokens(t, "other").Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	later, err := NewTokenManager(TokenConfig{
		Secret: "s3cret",
		Issuer: "journal",
		Now:    func() time.Time { return tokenNow.Add(2 * time.Hour) },
	})
	require.NoError(t, err)
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "jl@nyu.edu"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = m.Verify("")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager(TokenConfig{Secret: " "})
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := newTestTokens(t, "s3cret")
	mw := NewMiddleware(tokens)
	token, _, err := tokens.Issue("jl@nyu.edu")
	require.NoError(t, err)

	r := gin.New()
	echo := func(c *gin.Context) { c.String(http.StatusOK, CallerEmail(c)) }
	r.GET("/strict", mw.Authenticate(), echo)
	r.GET("/optional", mw.Optional(), echo)

	cases := []struct {
		path, header string
		status       int
		body         string
	}{
		{"/strict", "", http.StatusUnauthorized, ""},
		{"/strict", "Bearer garbage", http.StatusUnauthorized, ""},
		{"/strict", "Bearer " + token, http.StatusOK, "jl@nyu.edu"},
		{"/optional", "", http.StatusOK, ""},
		{"/optional", "Bearer garbage", http.StatusOK, ""},
		{"/optional", "bearer " + token, http.StatusOK, "jl@nyu.edu"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %q", tc.path, tc.header)
		if tc.status == http.StatusOK {
			assert.Equal(t, tc.body, w.Body.String())
		}
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	store := new(MockPeopleStore)
	service := NewService(store, newTestTokens(t, "s3cret"), zap.NewNop())
	service.bcryptCost = bcrypt.MinCost
	ctx := context.Background()

	var hash string
	store.On("CreateWithPassword", ctx, mock.MatchedBy(func(req *people.CreatePersonRequest) bool {
		return req.Email == "jl@nyu.edu" && len(req.Roles) == 1 && req.Roles[0] == roles.Author
	}), mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { hash = args.String(2) }).
		Return(&people.Person{Email: "jl@nyu.edu", Name: "Jenna Le"}, nil)

	_, err := service.Register(ctx, &RegisterRequest{Name: "Jenna Le", Email: "jl@nyu.edu", Password: "correct horse"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))

	_, err = service.Register(ctx, &RegisterRequest{Name: "Jenna Le", Email: "jl@nyu.edu", Password: "short"})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLogin(t *testing.T) {
	store := new(MockPeopleStore)
	tokens := newTestTokens(t, "s3cret")
	service := NewService(store, tokens, zap.NewNop())
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	store.On("Get", ctx, "jl@nyu.edu").Return(&people.Person{Email: "jl@nyu.edu", PasswordHash: string(hash)}, nil)
	store.On("Get", ctx, "who@nyu.edu").Return(nil, people.ErrNotFound)

	resp, err := service.Login(ctx, &LoginRequest{Email: "jl@nyu.edu", Password: "correct horse"})
	require.NoError(t, err)
	email, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "jl@nyu.edu", email)

	_, err = service.Login(ctx, &LoginRequest{Email: "jl@nyu.edu", Password: "wrong horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = service.Login(ctx, &LoginRequest{Email: "who@nyu.edu", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
