package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/originals/task-api/internal/core/domain"
	"github.com/originals/task-api/internal/core/ports"
	"github.com/originals/task-api/internal/pkg/metrics"
)

const tokenTypeBearer = "bearer"

// AuthService implements registration, login and token refresh.
type AuthService struct {
	users      ports.UserRepository
	tokens     ports.TokenIssuer
	bcryptCost int
	log        zerolog.Logger
}

func NewAuthService(users ports.UserRepository, tokens ports.TokenIssuer, bcryptCost int, log zerolog.Logger) *AuthService {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{users: users, tokens: tokens, bcryptCost: bcryptCost, log: log}
}

// Register creates a USER account. The role cannot be chosen by the caller.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.createUser(ctx, username, email, password, domain.RoleUser)
}

// EnsureUser creates an account with the given role unless the username is
// already taken, in which case the existing user is returned unchanged. It
// is used at startup to bootstrap privileged accounts from configuration.
func (s *AuthService) EnsureUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.createUser(ctx, username, email, password, role)
}

func (s *AuthService) createUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email, and password are required", domain.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Str("role", string(created.Role)).Msg("user registered")
	return created, nil
}

// Login checks credentials and returns an access/refresh token pair. An
// unknown username and a wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.TokenPair, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", domain.ErrValidation)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	claims := domain.Claims{Subject: user.Username, Role: user.Role}
	access, err := s.tokens.IssueAccessToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(claims)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return &ports.TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: tokenTypeBearer}, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *AuthService) Refresh(_ context.Context, refreshToken string) (*ports.TokenPair, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidToken
	}
	access, err := s.tokens.Refresh(refreshToken)
	if err != nil {
		return nil, err
	}
	return &ports.TokenPair{AccessToken: access, TokenType: tokenTypeBearer}, nil
}

// Me returns the user behind the caller's token.
func (s *AuthService) Me(ctx context.Context, caller domain.Principal) (*domain.User, error) {
	if err := authorize(caller, domain.ActionReadSelf); err != nil {
		return nil, err
	}
	user, err := s.users.FindByUsername(ctx, caller.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// DeleteUser removes a user together with the tasks they are responsible for.
func (s *AuthService) DeleteUser(ctx context.Context, caller domain.Principal, id int64) error {
	if err := authorize(caller, domain.ActionDeleteUser); err != nil {
		return err
	}
	deleted, err := s.users.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return domain.ErrUserNotFound
	}

	s.log.Info().Int64("user_id", id).Str("by", caller.Username).Msg("user deleted")
	return nil
}

// authorize applies the role policy and records denials.
func authorize(caller domain.Principal, action domain.Action) error {
	if !domain.IsAllowed(caller.Role, action) {
		metrics.AuthorizationDeniedTotal.WithLabelValues(string(action), string(caller.Role)).Inc()
		return domain.ErrForbidden
	}
	return nil
}
