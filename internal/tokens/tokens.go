// Package tokens issues and verifies the signed session tokens handed out on
// sign-in.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid session token")

// Claims carried by a session token. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

type Service struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewService(secret string, expiration time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if expiration <= 0 {
		return nil, fmt.Errorf("token expiration must be positive, got %s", expiration)
	}
	return &Service{secret: []byte(secret), expiration: expiration, now: time.Now}, nil
}

// Expiration returns the lifetime of issued tokens.
func (s *Service) Expiration() time.Duration {
	return s.expiration
}

// Issue signs a new token for userID. Every token gets a unique id so that
// two tokens issued within the same second still differ.
func (s *Service) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiration)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims.
func (s *Service) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject returns the user id of a valid token.
func (s *Service) Subject(token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
