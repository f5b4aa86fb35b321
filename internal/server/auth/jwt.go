// Package auth issues and verifies session tokens. Tokens are HS256 JWTs with
// a fixed lifetime; there is no revocation list, a token stays valid until it
// expires.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/refinery/internal/common"
	"github.com/dmitrijs2005/refinery/internal/server/models"
	"github.com/dmitrijs2005/refinery/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// SessionLifetime is the validity of every issued token.
const SessionLifetime = time.Hour

// Claims carries the session identity. IssuedAt and ExpiresAt live in the
// embedded registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenService signs and verifies session tokens. It holds no mutable state.
type TokenService struct {
	secret []byte
	clock  timex.Clock
}

func NewTokenService(secret []byte, clock timex.Clock) *TokenService {
	if clock == nil {
		clock = timex.SystemClock{}
	}
	return &TokenService{secret: secret, clock: clock}
}

// Issue signs a token for user valid for SessionLifetime from now.
func (s *TokenService) Issue(user *models.User) (string, *Claims, error) {
	now := s.clock.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionLifetime)),
		},
		UserID:   user.ID,
		Username: user.UserName,
		Role:     user.Role,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Verify checks the signature and expiry of token and returns its claims.
// Errors are common.ErrMissingToken, common.ErrTokenExpired,
// common.ErrInvalidSignature or common.ErrTokenMalformed.
func (s *TokenService) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, common.ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, common.ErrInvalidSignature
		default:
			return nil, common.ErrTokenMalformed
		}
	}
	if !parsed.Valid || claims.Username == "" {
		return nil, common.ErrTokenMalformed
	}

	return claims, nil
}
