package texts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, t *Text) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, key string) (*Text, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Text), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*Text, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Text), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, t *Text) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestSeedEmptyCollection(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Count", ctx).Return(int64(0), nil)
	mockRepo.On("Create", ctx, mock.MatchedBy(func(t *Text) bool { return t.Key == HomePageKey })).Return(nil).Once()
	mockRepo.On("Create", ctx, mock.MatchedBy(func(t *Text) bool { return t.Key == SubmissionsPageKey })).Return(nil).Once()

	require.NoError(t, service.Seed(ctx))
	mockRepo.AssertExpectations(t)
}

func TestSeedSkipsPopulatedCollection(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Count", ctx).Return(int64(3), nil)

	require.NoError(t, service.Seed(ctx))
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetMissingReturnsEmpty(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Get", ctx, "Nope").Return(nil, ErrNotFound)

	got, err := service.Get(ctx, "Nope")
	require.NoError(t, err)
	assert.Equal(t, &Text{}, got)
}

func TestCreateRejectsBadEmail(t *testing.T) {
	service := NewService(new(MockRepository), zap.NewNop())

	_, err := service.Create(context.Background(), &CreateTextRequest{Key: "About", Title: "About", Email: "x"})
	assert.ErrorIs(t, err, people.ErrInvalidEmail)
}

func TestHandlerStatuses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockRepo := new(MockRepository)
	r := gin.New()
	NewHandler(NewService(mockRepo, zap.NewNop()), func(c *gin.Context) { c.Next() }, zap.NewNop()).RegisterRoutes(r.Group("/api/v1"))

	mockRepo.On("Get", mock.Anything, "Nope").Return(nil, ErrNotFound)
	mockRepo.On("Get", mock.Anything, HomePageKey).Return(&Text{Key: HomePageKey, Title: "Home Page"}, nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(ErrAlreadyExists)
	mockRepo.On("Delete", mock.Anything, "Nope").Return(ErrNotFound)

	cases := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/api/v1/texts/Nope", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/texts/HomePage", "", http.StatusOK},
		{http.MethodPost, "/api/v1/texts", `{"key":"HomePage","title":"Home"}`, http.StatusConflict},
		{http.MethodPost, "/api/v1/texts", `{"key":"HomePage"}`, http.StatusBadRequest},
		{http.MethodDelete, "/api/v1/texts/Nope", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}
