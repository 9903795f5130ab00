package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/originals/task-api/internal/core/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL = 30 * time.Minute
	refreshTokenTTL  = 7 * 24 * time.Hour
)

// tokenClaims is the JWT payload: sub, role, typ plus the registered claims.
type tokenClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens. Validity is purely
// signature and expiry based; there is no revocation list.
type TokenService struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewTokenService(secret string, accessTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	return &TokenService{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// IssueAccessToken returns a short-lived token for authenticating requests.
func (s *TokenService) IssueAccessToken(claims domain.Claims) (string, error) {
	return s.issue(claims, tokenTypeAccess, s.accessTTL)
}

// IssueRefreshToken returns a token valid for seven days that can only be
// exchanged for a new access token.
func (s *TokenService) IssueRefreshToken(claims domain.Claims) (string, error) {
	return s.issue(claims, tokenTypeRefresh, refreshTokenTTL)
}

// Verify validates an access token. Bad signatures, expired, malformed and
// refresh tokens all yield domain.ErrInvalidToken.
func (s *TokenService) Verify(token string) (domain.Claims, error) {
	return s.parse(token, tokenTypeAccess)
}

// Refresh issues a new access token carrying the subject and role of a
// valid refresh token.
func (s *TokenService) Refresh(refreshToken string) (string, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}
	return s.IssueAccessToken(claims)
}

func (s *TokenService) issue(claims domain.Claims, typ string, ttl time.Duration) (string, error) {
	now := s.now()
	c := tokenClaims{
		Role: string(claims.Role),
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString(s.secret)
}

func (s *TokenService) parse(token, typ string) (domain.Claims, error) {
	var c tokenClaims
	tkn, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	role := domain.Role(c.Role)
	if c.Type != typ || c.Subject == "" || !role.Valid() {
		return domain.Claims{}, domain.ErrInvalidToken
	}
	return domain.Claims{Subject: c.Subject, Role: role}, nil
}
