package manuscripts

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, manu *Manuscript) error {
	args := m.Called(ctx, manu)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*Manuscript, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Manuscript), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, filter *ListFilter) ([]*Manuscript, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*Manuscript), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, manu *Manuscript, expectedVersion int) error {
	args := m.Called(ctx, manu, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CountByState(ctx context.Context) (map[State]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[State]int64), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishTransition(event TransitionEvent) {
	m.Called(event)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyTransition(ctx context.Context, manu *Manuscript, entry HistoryEntry) error {
	args := m.Called(ctx, manu, entry)
	return args.Error(0)
}

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Upload(ctx context.Context, key string, body io.Reader) error {
	args := m.Called(ctx, key, body)
	return args.Error(0)
}

func (m *MockFileStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFileStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockFileStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

var editor = Caller{Email: "ed@example.com", Roles: []roles.Code{roles.Editor}}

func newTestService(repo Repository, opts ...Option) *Service {
	return NewService(repo, newTestExecutor(false), zap.NewNop(), opts...)
}

func TestCreateManuscript(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.AnythingOfType("*manuscripts.Manuscript")).Return(nil)

	m, err := service.Create(ctx, &CreateManuscriptRequest{
		Title:       "On Torts",
		Author:      "Ann Author",
		AuthorEmail: "ann@example.com",
		Abstract:    "Short.",
	})

	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, StateSubmitted, m.State)
	assert.Empty(t, m.Referees)
	assert.Empty(t, m.History)
	assert.Equal(t, "Short.", m.Abstract)
	mockRepo.AssertExpectations(t)
}

func TestCreateManuscriptRejectsBadEmail(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	_, err := service.Create(context.Background(), &CreateManuscriptRequest{
		Title:       "On Torts",
		Author:      "Ann Author",
		AuthorEmail: "not-an-email",
	})

	assert.ErrorIs(t, err, people.ErrInvalidEmail)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListAppliesPagingDefaults(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("List", ctx, mock.MatchedBy(func(f *ListFilter) bool {
		return f.Page == 1 && f.PageSize == 20
	})).Return([]*Manuscript{manuscriptIn(StateSubmitted)}, int64(45), nil)

	resp, err := service.List(ctx, &ListFilter{PageSize: 500})

	require.NoError(t, err)
	assert.Equal(t, int64(45), resp.TotalCount)
	assert.True(t, resp.HasMore)
	assert.Len(t, resp.Manuscripts, 1)
}

func TestListRejectsUnknownState(t *testing.T) {
	service := newTestService(new(MockRepository))
	bad := State("NOPE")

	_, err := service.List(context.Background(), &ListFilter{State: &bad})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTransitionPersistsAndPublishes(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	notifier := new(MockNotifier)
	service := newTestService(mockRepo, WithPublisher(publisher), WithNotifier(notifier))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	m.Version = 3
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Update", ctx, m, 3).Return(nil)
	publisher.On("PublishTransition", mock.MatchedBy(func(e TransitionEvent) bool {
		return e.ManuscriptID == m.ID && e.From == StateSubmitted && e.To == StateInRefereeReview && e.By == editor.Email
	})).Return()
	notifier.On("NotifyTransition", ctx, m, mock.AnythingOfType("manuscripts.HistoryEntry")).Return(errors.New("smtp down"))

	result, err := service.Transition(ctx, m.ID, editor, &TransitionInput{
		CurrentState: StateSubmitted,
		Action:       ActionAssignReferee,
		Referee:      "Jill",
	})

	require.NoError(t, err)
	assert.Equal(t, StateInRefereeReview, result.NewState)
	assert.Equal(t, []string{"Jill"}, m.RefereeNames())
	mockRepo.AssertExpectations(t)
	publisher.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestTransitionStateMismatch(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateInRefereeReview, "Jill")
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)

	_, err := service.Transition(ctx, m.ID, editor, &TransitionInput{
		CurrentState: StateSubmitted,
		Action:       ActionReject,
	})

	assert.ErrorIs(t, err, ErrStateMismatch)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionActionNotPermitted(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateInRefereeReview, "Jill")
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)

	author := Caller{Email: "ann@example.com", Roles: []roles.Code{roles.Author}}
	_, err := service.Transition(ctx, m.ID, author, &TransitionInput{
		Action:  ActionAccept,
		Referee: "Jill",
	})

	assert.ErrorIs(t, err, ErrActionNotPermitted)
	assert.Equal(t, StateInRefereeReview, m.State)
}

func TestTransitionConflictIsReported(t *testing.T) {
	mockRepo := new(MockRepository)
	publisher := new(MockPublisher)
	service := newTestService(mockRepo, WithPublisher(publisher))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Update", ctx, m, 0).Return(ErrConflict)

	_, err := service.Transition(ctx, m.ID, editor, &TransitionInput{Action: ActionReject})

	assert.ErrorIs(t, err, ErrConflict)
	publisher.AssertNotCalled(t, "PublishTransition", mock.Anything)
}

func TestTransitionUnknownManuscript(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("Get", ctx, "missing").Return(nil, ErrNotFound)

	_, err := service.Transition(ctx, "missing", editor, &TransitionInput{Action: ActionReject})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRejectsWorkflowFields(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)

	_, err := service.Update(ctx, m.ID, map[string]any{"state": "PUB"})
	assert.ErrorIs(t, err, ErrFieldNotEditable)

	_, err = service.Update(ctx, m.ID, map[string]any{"colour": "red"})
	assert.ErrorIs(t, err, ErrUnknownField)

	_, err = service.Update(ctx, m.ID, map[string]any{"title": 7})
	assert.ErrorIs(t, err, ErrInvalidFieldType)

	_, err = service.Update(ctx, m.ID, map[string]any{"author_email": "nope"})
	assert.ErrorIs(t, err, people.ErrInvalidEmail)

	assert.Equal(t, StateSubmitted, m.State)
	mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateDescriptiveFields(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	m.Version = 2
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Update", ctx, m, 2).Return(nil)

	got, err := service.Update(ctx, m.ID, map[string]any{"title": "New Title", "editor": "Ed"})

	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, "Ed", got.Editor)
	mockRepo.AssertExpectations(t)
}

func TestResetHistory(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateRejected)
	AppendHistory(m, StateSubmitted, ActionReject, StateRejected, fixedNow)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Update", ctx, m, 0).Return(nil)

	require.NoError(t, service.ResetHistory(ctx, m.ID))

	entries, err := service.History(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAvailableActionsFiltersByRole(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateAuthorRevisions)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)

	actions, err := service.AvailableActions(ctx, m.ID, []roles.Code{roles.Author})

	require.NoError(t, err)
	assert.Equal(t, []ActionInfo{
		{Code: ActionWithdraw, Name: "Withdraw"},
		{Code: ActionDone, Name: "Done"},
	}, actions)
}

func TestExportWritesWorkbook(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateRejected)
	AppendHistory(m, StateSubmitted, ActionReject, StateRejected, fixedNow)
	mockRepo.On("List", ctx, mock.Anything).Return([]*Manuscript{m}, int64(1), nil)

	var buf bytes.Buffer
	require.NoError(t, service.Export(ctx, &buf, FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(manuscriptSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, m.Title, title)

	action, err := f.GetCellValue(historySheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Reject", action)
}

func TestExportWritesCSV(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	m := manuscriptIn(StateInRefereeReview, "Ria", "Bo")
	mockRepo.On("List", ctx, mock.Anything).Return([]*Manuscript{m}, int64(1), nil)

	var buf bytes.Buffer
	require.NoError(t, service.Export(ctx, &buf, FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, manuscriptColumns, records[0])
	assert.Equal(t, m.Title, records[1][1])
	assert.Equal(t, "Ria, Bo", records[1][5])
}

func TestExportUnknownFormat(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)

	err := service.Export(context.Background(), &bytes.Buffer{}, "pdf")

	assert.ErrorIs(t, err, ErrUnknownFormat)
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestUploadFileWithoutStorage(t *testing.T) {
	service := newTestService(new(MockRepository))

	_, err := service.UploadFile(context.Background(), "id", "paper.pdf", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = service.FileURL(context.Background(), "id", time.Minute)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestUploadFileStoresKey(t *testing.T) {
	mockRepo := new(MockRepository)
	files := new(MockFileStore)
	service := newTestService(mockRepo, WithFileStore(files))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	key := "manuscripts/" + m.ID + "/paper.pdf"
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Update", ctx, m, 0).Return(nil)
	files.On("Upload", ctx, key, mock.Anything).Return(nil)
	files.On("PresignGet", ctx, key, time.Minute).Return("https://files.example.com/signed", nil)

	got, err := service.UploadFile(ctx, m.ID, "../../paper.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, key, got.FileKey)

	url, err := service.FileURL(ctx, m.ID, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/signed", url)
}

func TestFileURLWithoutUpload(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo, WithFileStore(new(MockFileStore)))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)

	_, err := service.FileURL(ctx, m.ID, time.Minute)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestDeleteRemovesUploadedFile(t *testing.T) {
	mockRepo := new(MockRepository)
	files := new(MockFileStore)
	service := newTestService(mockRepo, WithFileStore(files))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	m.FileKey = "manuscripts/" + m.ID + "/paper.pdf"
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Delete", ctx, m.ID).Return(nil)
	files.On("Delete", ctx, m.FileKey).Return(nil)

	require.NoError(t, service.Delete(ctx, m.ID))
	files.AssertExpectations(t)
}

func TestDeleteSurvivesFileStoreFailure(t *testing.T) {
	mockRepo := new(MockRepository)
	files := new(MockFileStore)
	service := newTestService(mockRepo, WithFileStore(files))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	m.FileKey = "manuscripts/" + m.ID + "/paper.pdf"
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Delete", ctx, m.ID).Return(nil)
	files.On("Delete", ctx, m.FileKey).Return(errors.New("s3 unavailable"))

	assert.NoError(t, service.Delete(ctx, m.ID))
	mockRepo.AssertExpectations(t)
}

func TestDeleteWithoutFileSkipsStore(t *testing.T) {
	mockRepo := new(MockRepository)
	files := new(MockFileStore)
	service := newTestService(mockRepo, WithFileStore(files))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	mockRepo.On("Delete", ctx, m.ID).Return(nil)

	require.NoError(t, service.Delete(ctx, m.ID))
	files.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteMissingManuscript(t *testing.T) {
	mockRepo := new(MockRepository)
	service := newTestService(mockRepo)
	ctx := context.Background()

	mockRepo.On("Get", ctx, "missing").Return(nil, ErrNotFound)

	assert.ErrorIs(t, service.Delete(ctx, "missing"), ErrNotFound)
	mockRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestOpenFile(t *testing.T) {
	mockRepo := new(MockRepository)
	files := new(MockFileStore)
	service := newTestService(mockRepo, WithFileStore(files))
	ctx := context.Background()

	m := manuscriptIn(StateSubmitted)
	m.FileKey = "manuscripts/" + m.ID + "/paper.pdf"
	mockRepo.On("Get", ctx, m.ID).Return(m, nil)
	files.On("Download", ctx, m.FileKey).Return(io.NopCloser(strings.NewReader("%PDF")), nil)

	body, err := service.OpenFile(ctx, m.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data))
}

func TestSubmitReviewUnderOwnNameOnly(t *testing.T) {
	jill := Caller{Email: "jill@example.com", Name: "Jill", Roles: []roles.Code{roles.Referee}}

	cases := []struct {
		name    string
		caller  Caller
		referee string
		wantErr error
	}{
		{"own name", jill, "Jill", nil},
		{"own email", Caller{Email: "jack@example.com", Roles: []roles.Code{roles.Referee}}, "jack@example.com", nil},
		{"another referee", jill, "Jack", ErrActionNotPermitted},
		{"refereeing editor files for another", Caller{Email: "ed@example.com", Roles: []roles.Code{roles.Editor, roles.Referee}}, "Jack", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := newTestService(mockRepo)
			ctx := context.Background()

			m := manuscriptIn(StateInRefereeReview, "Jill", "Jack", "jack@example.com")
			mockRepo.On("Get", ctx, m.ID).Return(m, nil)
			mockRepo.On("Update", ctx, m, 0).Return(nil)

			_, err := service.Transition(ctx, m.ID, tc.caller, &TransitionInput{
				Action:  ActionSubmitReview,
				Referee: tc.referee,
				Report:  "Sound argument",
			})

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Sound argument", m.Referees[m.refereeIndex(tc.referee)].Report)
		})
	}
}
