package people

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Person) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, email string) (*Person, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Person), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*Person, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*Person), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, p *Person) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockRepository) AddRole(ctx context.Context, email string, code roles.Code) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func (m *MockRepository) RemoveRole(ctx context.Context, email string, code roles.Code) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"jl12631@nyu.edu", "a@b", "9x@3y.org"}
	invalid := []string{"", "@nyu.edu", "jl12631", "jl@", ".x@nyu.edu", "jl@.edu"}

	for _, e := range valid {
		assert.True(t, IsValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, IsValidEmail(e), e)
	}
}

func TestCreatePerson(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.AnythingOfType("*people.Person")).Return(nil)

	p, err := service.Create(ctx, &CreatePersonRequest{
		Email:       "jl12631@nyu.edu",
		Name:        "Jenna Le",
		Affiliation: "NYU",
		Roles:       []roles.Code{roles.Editor, roles.Editor, roles.Author},
	})

	require.NoError(t, err)
	assert.Equal(t, []roles.Code{roles.Editor, roles.Author}, p.Roles)
	assert.Empty(t, p.PasswordHash)
	mockRepo.AssertExpectations(t)
}

func TestCreatePersonValidation(t *testing.T) {
	service := NewService(new(MockRepository), zap.NewNop())
	ctx := context.Background()

	_, err := service.Create(ctx, &CreatePersonRequest{Email: "bad", Name: "Jenna Le"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = service.Create(ctx, &CreatePersonRequest{Email: "jl@nyu.edu", Name: "J"})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = service.Create(ctx, &CreatePersonRequest{Email: "jl@nyu.edu", Name: "Jenna", Roles: []roles.Code{"XX"}})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestCreatePersonDuplicate(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(ErrAlreadyExists)

	_, err := service.Create(ctx, &CreatePersonRequest{Email: "jl@nyu.edu", Name: "Jenna"})
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUpdatePersonKeepsUnsetFields(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	existing := &Person{Email: "jl@nyu.edu", Name: "Jenna Le", Affiliation: "NYU", Roles: []roles.Code{roles.Author}}
	mockRepo.On("Get", ctx, "jl@nyu.edu").Return(existing, nil)
	mockRepo.On("Update", ctx, existing).Return(nil)

	affiliation := "Columbia"
	p, err := service.Update(ctx, &UpdatePersonRequest{Email: "jl@nyu.edu", Affiliation: &affiliation})

	require.NoError(t, err)
	assert.Equal(t, "Jenna Le", p.Name)
	assert.Equal(t, "Columbia", p.Affiliation)
	assert.Equal(t, []roles.Code{roles.Author}, p.Roles)
}

func TestUpdateMissingPerson(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Get", ctx, "nobody@nyu.edu").Return(nil, ErrNotFound)

	_, err := service.Update(ctx, &UpdatePersonRequest{Email: "nobody@nyu.edu"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddRoleRejectsUnknownRole(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())

	err := service.AddRole(context.Background(), "jl@nyu.edu", "ZZ")

	assert.ErrorIs(t, err, ErrInvalidRole)
	mockRepo.AssertNotCalled(t, "AddRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestRolesOf(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("Get", ctx, "ed@nyu.edu").Return(&Person{Email: "ed@nyu.edu", Roles: []roles.Code{roles.Editor}}, nil)
	mockRepo.On("Get", ctx, "who@nyu.edu").Return(nil, ErrNotFound)

	codes, err := service.RolesOf(ctx, "ed@nyu.edu")
	require.NoError(t, err)
	assert.Equal(t, []roles.Code{roles.Editor}, codes)

	codes, err = service.RolesOf(ctx, "who@nyu.edu")
	require.NoError(t, err)
	assert.Empty(t, codes)

	codes, err = service.RolesOf(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, codes)
}

func TestMastheadGroupsEditors(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, zap.NewNop())
	ctx := context.Background()

	mockRepo.On("List", ctx).Return([]*Person{
		{Email: "z@nyu.edu", Name: "Zed", Roles: []roles.Code{roles.Editor}},
		{Email: "a@nyu.edu", Name: "Amy", Roles: []roles.Code{roles.Editor, roles.ManagingEditor}},
		{Email: "r@nyu.edu", Name: "Ria", Roles: []roles.Code{roles.Referee}},
	}, nil)

	sections, err := service.Masthead(ctx)

	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, "Editor", sections[0].Role)
	assert.Equal(t, "Amy", sections[0].People[0].Name)
	assert.Equal(t, "Zed", sections[0].People[1].Name)
	assert.Equal(t, "Managing Editor", sections[1].Role)
}

func TestWriteMastheadPDF(t *testing.T) {
	sections := []MastheadSection{
		{Role: "Editor", People: []MastheadEntry{{Name: "Amy", Email: "a@nyu.edu", Affiliation: "NYU"}}},
	}
	opts := DefaultMastheadPDFOptions("Journal of Things")
	opts.Date = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, WriteMastheadPDF(&buf, sections, opts))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	buf.Reset()
	require.NoError(t, WriteMastheadPDF(&buf, nil, opts))
	assert.NotZero(t, buf.Len())
}
