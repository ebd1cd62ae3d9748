package manuscripts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

var (
	ErrActionNotPermitted = errors.New("action not permitted for caller roles")
	ErrStateMismatch      = errors.New("manuscript is not in the stated current state")
	ErrStorageDisabled    = errors.New("file storage is not configured")
	ErrNoFile             = errors.New("manuscript has no uploaded file")
)

// Publisher broadcasts persisted transitions
type Publisher interface {
	PublishTransition(event TransitionEvent)
}

// Notifier tells interested parties about a persisted transition
type Notifier interface {
	NotifyTransition(ctx context.Context, m *Manuscript, entry HistoryEntry) error
}

// FileStore keeps uploaded manuscript files
type FileStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Caller is the identity performing a workflow operation. Name is the
// caller's name in the people directory, if any.
type Caller struct {
	Email string
	Name  string
	Roles []roles.Code
}

// IsMasthead reports whether the caller holds a masthead role
func (c Caller) IsMasthead() bool {
	return roles.AnyMasthead(c.Roles)
}

// Owns reports whether the caller is the author of m
func (c Caller) Owns(m *Manuscript) bool {
	return c.Email != "" && strings.EqualFold(c.Email, m.AuthorEmail)
}

// IsRefereeOf reports whether the caller is assigned to referee m, under
// either their name or their email
func (c Caller) IsRefereeOf(m *Manuscript) bool {
	return c.speaksFor(m.RefereeNames()...)
}

func (c Caller) speaksFor(names ...string) bool {
	for _, n := range names {
		if n == "" {
			continue
		}
		if n == c.Name || strings.EqualFold(n, c.Email) {
			return true
		}
	}
	return false
}

// Option configures optional collaborators of the Service
type Option func(*Service)

// WithPublisher publishes every persisted transition
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotifier notifies about every persisted transition
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithFileStore enables manuscript file uploads
func WithFileStore(fs FileStore) Option {
	return func(s *Service) { s.files = fs }
}

// Service provides manuscript business logic
type Service struct {
	repo      Repository
	executor  *Executor
	logger    *zap.Logger
	publisher Publisher
	notifier  Notifier
	files     FileStore
}

// NewService creates a new manuscripts service
func NewService(repo Repository, executor *Executor, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		executor: executor,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create submits a new manuscript
func (s *Service) Create(ctx context.Context, req *CreateManuscriptRequest) (*Manuscript, error) {
	if !people.IsValidEmail(req.AuthorEmail) {
		return nil, fmt.Errorf("%w: %q", people.ErrInvalidEmail, req.AuthorEmail)
	}

	m := NewManuscript(req.Title, req.Author, req.AuthorEmail)
	m.Abstract = req.Abstract
	m.Text = req.Text
	m.Editor = req.Editor

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create manuscript: %w", err)
	}

	s.logger.Info("Manuscript submitted",
		zap.String("manuscript_id", m.ID),
		zap.String("title", m.Title),
		zap.String("author_email", m.AuthorEmail))

	return m, nil
}

// Get retrieves a manuscript by ID
func (s *Service) Get(ctx context.Context, id string) (*Manuscript, error) {
	return s.repo.Get(ctx, id)
}

// List lists manuscripts with filters
func (s *Service) List(ctx context.Context, filter *ListFilter) (*ListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if filter.State != nil && !IsValidState(*filter.State) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, *filter.State)
	}

	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &ListResponse{
		Manuscripts: list,
		TotalCount:  total,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
		HasMore:     int64(filter.Page*filter.PageSize) < total,
	}, nil
}

// Update changes descriptive fields. Workflow fields are rejected.
func (s *Service) Update(ctx context.Context, id string, data map[string]any) (*Manuscript, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyFieldUpdates(m, data); err != nil {
		return nil, err
	}
	m.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, m, m.Version); err != nil {
		return nil, err
	}

	s.logger.Info("Manuscript updated", zap.String("manuscript_id", id), zap.Int("version", m.Version))
	return m, nil
}

// Delete removes a manuscript and its uploaded file. A file that cannot be
// removed is logged and left behind.
func (s *Service) Delete(ctx context.Context, id string) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Manuscript deleted", zap.String("manuscript_id", id))

	if s.files != nil && m.FileKey != "" {
		if err := s.files.Delete(ctx, m.FileKey); err != nil {
			s.logger.Warn("Failed to delete manuscript file",
				zap.String("manuscript_id", id),
				zap.String("key", m.FileKey),
				zap.Error(err))
		}
	}
	return nil
}

// AvailableActions lists the actions of the manuscript's current state that
// the roles may invoke
func (s *Service) AvailableActions(ctx context.Context, id string, roleCodes []roles.Code) ([]ActionInfo, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	actions := ActionsFor(m.State, roleCodes)
	out := make([]ActionInfo, len(actions))
	for i, a := range actions {
		out[i] = ActionInfo{Code: a, Name: a.DisplayName()}
	}
	return out, nil
}

// Transition executes an action on a manuscript on behalf of caller and
// persists the result. A concurrent writer surfaces as ErrConflict.
func (s *Service) Transition(ctx context.Context, id string, caller Caller, in *TransitionInput) (*TransitionResult, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.CurrentState != "" && IsValidState(in.CurrentState) && in.CurrentState != m.State {
		return nil, fmt.Errorf("%w: stored %q, requested %q", ErrStateMismatch, m.State, in.CurrentState)
	}
	if IsValidAction(in.Action) && !CanInvoke(caller.Roles, in.Action) {
		return nil, fmt.Errorf("%w: %s", ErrActionNotPermitted, in.Action.DisplayName())
	}
	// referees file reports only under their own name
	if in.Action == ActionSubmitReview && !caller.IsMasthead() && !caller.speaksFor(in.Referee) {
		return nil, fmt.Errorf("%w: report for %q", ErrActionNotPermitted, in.Referee)
	}

	expected := m.Version
	result, err := s.executor.Execute(TransitionRequest{
		Manuscript:   m,
		CurrentState: in.CurrentState,
		Action:       in.Action,
		Referee:      in.Referee,
		Report:       in.Report,
	})
	if err != nil {
		return nil, err
	}
	m.UpdatedAt = result.Entry.At

	if err := s.repo.Update(ctx, m, expected); err != nil {
		return nil, err
	}

	s.logger.Info("Manuscript transitioned",
		zap.String("manuscript_id", id),
		zap.String("from", string(result.Entry.From)),
		zap.String("action", string(result.Entry.Action)),
		zap.String("to", string(result.NewState)),
		zap.String("by", caller.Email))

	if s.publisher != nil {
		s.publisher.PublishTransition(TransitionEvent{
			ManuscriptID: m.ID,
			Title:        m.Title,
			From:         result.Entry.From,
			Action:       result.Entry.Action,
			To:           result.NewState,
			By:           caller.Email,
			At:           result.Entry.At,
		})
	}
	if s.notifier != nil {
		if err := s.notifier.NotifyTransition(ctx, m, result.Entry); err != nil {
			s.logger.Warn("Failed to notify about transition",
				zap.String("manuscript_id", id),
				zap.Error(err))
		}
	}

	return result, nil
}

// History returns the transition history of a manuscript
func (s *Service) History(ctx context.Context, id string) ([]HistoryEntry, error) {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return History(m), nil
}

// ResetHistory clears a manuscript's history
func (s *Service) ResetHistory(ctx context.Context, id string) error {
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	ResetHistory(m)
	m.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, m, m.Version); err != nil {
		return err
	}
	s.logger.Warn("Manuscript history reset", zap.String("manuscript_id", id))
	return nil
}

// CountByState counts manuscripts per workflow state
func (s *Service) CountByState(ctx context.Context) (map[State]int64, error) {
	return s.repo.CountByState(ctx)
}

// Export writes every manuscript in the requested format
func (s *Service) Export(ctx context.Context, w io.Writer, format ExportFormat) error {
	if format != FormatXLSX && format != FormatCSV {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	list, _, err := s.repo.List(ctx, &ListFilter{})
	if err != nil {
		return err
	}
	if format == FormatCSV {
		return WriteCSV(w, list)
	}
	return WriteWorkbook(w, list)
}

// UploadFile stores the manuscript's file and records its key
func (s *Service) UploadFile(ctx context.Context, id, filename string, body io.Reader) (*Manuscript, error) {
	if s.files == nil {
		return nil, ErrStorageDisabled
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("manuscripts/%s/%s", m.ID, path.Base(filename))
	if err := s.files.Upload(ctx, key, body); err != nil {
		return nil, fmt.Errorf("failed to upload manuscript file: %w", err)
	}

	m.FileKey = key
	m.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, m, m.Version); err != nil {
		return nil, err
	}

	s.logger.Info("Manuscript file uploaded", zap.String("manuscript_id", id), zap.String("key", key))
	return m, nil
}

// OpenFile streams the manuscript's uploaded file. The caller closes it.
func (s *Service) OpenFile(ctx context.Context, id string) (io.ReadCloser, error) {
	if s.files == nil {
		return nil, ErrStorageDisabled
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.FileKey == "" {
		return nil, ErrNoFile
	}
	return s.files.Download(ctx, m.FileKey)
}

// FileURL returns a time-limited download URL for the manuscript's file
func (s *Service) FileURL(ctx context.Context, id string, ttl time.Duration) (string, error) {
	if s.files == nil {
		return "", ErrStorageDisabled
	}
	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if m.FileKey == "" {
		return "", ErrNoFile
	}
	return s.files.PresignGet(ctx, m.FileKey, ttl)
}
