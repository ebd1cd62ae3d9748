package people

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

const MinNameLength = 2

var (
	ErrNotFound      = errors.New("person not found")
	ErrAlreadyExists = errors.New("person already exists")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrInvalidName   = errors.New("name is too short")
	ErrInvalidRole   = errors.New("invalid role")
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9].*@[A-Za-z0-9].*`)

// IsValidEmail reports whether email has a plausible local part and domain
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validateRoles(codes []roles.Code) error {
	for _, code := range codes {
		if !roles.IsValid(code) {
			return fmt.Errorf("%w: %q", ErrInvalidRole, code)
		}
	}
	return nil
}

func validate(email, name string, codes []roles.Code) error {
	if !IsValidEmail(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	if len(strings.TrimSpace(name)) < MinNameLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return validateRoles(codes)
}

// Service provides people business logic
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new people service
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]*Person, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, email string) (*Person, error) {
	return s.repo.Get(ctx, email)
}

// Create adds a person without login credentials
func (s *Service) Create(ctx context.Context, req *CreatePersonRequest) (*Person, error) {
	return s.CreateWithPassword(ctx, req, "")
}

// CreateWithPassword adds a person that can log in with the given bcrypt hash
func (s *Service) CreateWithPassword(ctx context.Context, req *CreatePersonRequest, passwordHash string) (*Person, error) {
	if err := validate(req.Email, req.Name, req.Roles); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &Person{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		Affiliation:  req.Affiliation,
		Roles:        dedupe(req.Roles),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Person created", zap.String("email", p.Email), zap.Int("roles", len(p.Roles)))
	return p, nil
}

// Update changes the profile of an existing person
func (s *Service) Update(ctx context.Context, req *UpdatePersonRequest) (*Person, error) {
	p, err := s.repo.Get(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Affiliation != nil {
		p.Affiliation = *req.Affiliation
	}
	if req.Roles != nil {
		p.Roles = dedupe(*req.Roles)
	}
	if err := validate(p.Email, p.Name, p.Roles); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Person updated", zap.String("email", p.Email))
	return p, nil
}

func (s *Service) Delete(ctx context.Context, email string) error {
	if err := s.repo.Delete(ctx, email); err != nil {
		return err
	}
	s.logger.Info("Person deleted", zap.String("email", email))
	return nil
}

// AddRole grants a role. Granting a held role changes nothing.
func (s *Service) AddRole(ctx context.Context, email string, code roles.Code) error {
	if !roles.IsValid(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, code)
	}
	if err := s.repo.AddRole(ctx, email, code); err != nil {
		return err
	}
	s.logger.Info("Role added", zap.String("email", email), zap.String("role", string(code)))
	return nil
}

// RemoveRole revokes a role. Revoking an unheld role changes nothing.
func (s *Service) RemoveRole(ctx context.Context, email string, code roles.Code) error {
	if !roles.IsValid(code) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, code)
	}
	if err := s.repo.RemoveRole(ctx, email, code); err != nil {
		return err
	}
	s.logger.Info("Role removed", zap.String("email", email), zap.String("role", string(code)))
	return nil
}

// RolesOf returns the roles held by email. Unknown people hold no roles.
func (s *Service) RolesOf(ctx context.Context, email string) ([]roles.Code, error) {
	if email == "" {
		return nil, nil
	}
	p, err := s.repo.Get(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p.Roles, nil
}

// Masthead groups the people holding masthead roles, in role order. Roles
// nobody holds are omitted.
func (s *Service) Masthead(ctx context.Context) ([]MastheadSection, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	sections := []MastheadSection{}
	for _, role := range roles.MastheadRoles() {
		var entries []MastheadEntry
		for _, p := range all {
			if p.HasRole(role.Code) {
				entries = append(entries, MastheadEntry{Name: p.Name, Email: p.Email, Affiliation: p.Affiliation})
			}
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		sections = append(sections, MastheadSection{Role: role.Name, People: entries})
	}
	return sections, nil
}

func dedupe(codes []roles.Code) []roles.Code {
	out := []roles.Code{}
	seen := make(map[roles.Code]bool, len(codes))
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
