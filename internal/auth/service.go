package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openbanking-labs/consent-admin-api/internal/system/config"
	"github.com/openbanking-labs/consent-admin-api/internal/system/utils"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// OperatorClaims are the JWT claims carried by operator access tokens.
type OperatorClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthService issues and validates operator access tokens. Operator
// accounts come from configuration; there is no user store.
type AuthService interface {
	Login(username, password string) (token string, expiresIn time.Duration, err error)
	Validate(token string) (*OperatorClaims, error)
}

type authService struct {
	cfg *config.AuthConfig
}

func newAuthService(cfg *config.AuthConfig) AuthService {
	return &authService{cfg: cfg}
}

// Login checks the credentials against configured operator accounts and
// returns a signed HS256 token. Password comparison is constant-time.
func (s *authService) Login(username, password string) (string, time.Duration, error) {
	account, found := s.cfg.FindOperator(username)
	if !found {
		// Compare against a dummy value so unknown usernames cost the
		// same as wrong passwords.
		subtle.ConstantTimeCompare([]byte(password), []byte("-"))
		return "", 0, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(account.Password)) != 1 {
		return "", 0, ErrInvalidCredentials
	}

	now := time.Now()
	claims := OperatorClaims{
		Role: account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.Username,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
			ID:        utils.GenerateUUID(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SigningKey))
	if err != nil {
		return "", 0, err
	}
	return signed, s.cfg.TokenTTL, nil
}

// Validate parses and verifies an operator token.
func (s *authService) Validate(tokenString string) (*OperatorClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return []byte(s.cfg.SigningKey), nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*OperatorClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
