package texts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
)

var (
	ErrNotFound      = errors.New("text not found")
	ErrAlreadyExists = errors.New("text already exists")
)

// Service provides journal page logic
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new texts service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Seed writes the default pages when no page exists yet
func (s *Service) Seed(ctx context.Context) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for i := range defaultTexts {
		t := defaultTexts[i]
		if err := s.repo.Create(ctx, &t); err != nil && !errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("failed to seed %s: %w", t.Key, err)
		}
	}
	s.logger.Info("Seeded journal pages", zap.Int("count", len(defaultTexts)))
	return nil
}

func (s *Service) List(ctx context.Context) ([]*Text, error) {
	return s.repo.List(ctx)
}

// Get returns the page for key, or an empty page when none exists
func (s *Service) Get(ctx context.Context, key string) (*Text, error) {
	t, err := s.repo.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return &Text{}, nil
	}
	return t, err
}

func (s *Service) Create(ctx context.Context, req *CreateTextRequest) (*Text, error) {
	if req.Email != "" && !people.IsValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: %q", people.ErrInvalidEmail, req.Email)
	}
	t := &Text{Key: req.Key, Title: req.Title, Text: req.Text, Email: req.Email}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Text created", zap.String("key", t.Key))
	return t, nil
}

func (s *Service) Update(ctx context.Context, key string, req *UpdateTextRequest) (*Text, error) {
	if req.Email != "" && !people.IsValidEmail(req.Email) {
		return nil, fmt.Errorf("%w: %q", people.ErrInvalidEmail, req.Email)
	}
	t := &Text{Key: key, Title: req.Title, Text: req.Text, Email: req.Email}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("Text updated", zap.String("key", key))
	return t, nil
}

func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.Info("Text deleted", zap.String("key", key))
	return nil
}
