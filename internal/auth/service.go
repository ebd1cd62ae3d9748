package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jennajle/jlsa-fall-journal/internal/people"
	"github.com/jennajle/jlsa-fall-journal/internal/roles"
)

const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// PeopleStore is the slice of the people service auth relies on
type PeopleStore interface {
	Get(ctx context.Context, email string) (*people.Person, error)
	CreateWithPassword(ctx context.Context, req *people.CreatePersonRequest, passwordHash string) (*people.Person, error)
}

// RegisterRequest is the payload for self-registration
type RegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Affiliation string `json:"affiliation"`
}

// LoginRequest is the payload for logging in
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries a signed token
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Person    *people.Person `json:"person"`
}

// Service registers and logs people in
type Service struct {
	people     PeopleStore
	tokens     *TokenManager
	logger     *zap.Logger
	bcryptCost int
}

// NewService creates a new auth service
func NewService(store PeopleStore, tokens *TokenManager, logger *zap.Logger) *Service {
	return &Service{
		people:     store,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Register creates an author account with a hashed password
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*people.Person, error) {
	if len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p, err := s.people.CreateWithPassword(ctx, &people.CreatePersonRequest{
		Email:       req.Email,
		Name:        req.Name,
		Affiliation: req.Affiliation,
		Roles:       []roles.Code{roles.Author},
	}, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Person registered", zap.String("email", p.Email))
	return p, nil
}

// Login verifies the password and issues a token
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	p, err := s.people.Get(ctx, req.Email)
	if errors.Is(err, people.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if p.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
		s.logger.Warn("Failed login", zap.String("email", req.Email))
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(p.Email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Person logged in", zap.String("email", p.Email))
	return &LoginResponse{Token: token, ExpiresAt: exp, Person: p}, nil
}

// Me returns the person behind an authenticated email
func (s *Service) Me(ctx context.Context, email string) (*people.Person, error) {
	if email == "" {
		return nil, ErrUnauthorized
	}
	return s.people.Get(ctx, email)
}
