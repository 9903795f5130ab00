package ports

import (
	"context"

	"github.com/originals/task-api/internal/core/domain"
)

// TokenPair is returned by login and refresh. RefreshToken is empty on refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
}

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context, caller domain.Principal) (*domain.User, error)
	DeleteUser(ctx context.Context, caller domain.Principal, id int64) error
}

// TokenIssuer issues and validates bearer credentials.
type TokenIssuer interface {
	IssueAccessToken(claims domain.Claims) (string, error)
	IssueRefreshToken(claims domain.Claims) (string, error)
	// Verify checks signature and expiry of an access token. Every failure
	// is reported as domain.ErrInvalidToken.
	Verify(token string) (domain.Claims, error)
	// Refresh re-issues an access token from a valid refresh token.
	Refresh(refreshToken string) (string, error)
}
