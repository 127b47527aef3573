// Package csrf issues and validates anti-forgery tokens for state-changing
// requests. Tokens are signed, session-bound, and expiring; clients may
// supply them in the X-CSRFToken header or the csrf_token form field.
package csrf

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when neither header nor body carry a token.
	ErrMissingToken = errors.New("csrf: token missing")
	// ErrInvalidToken covers bad signatures, expiry, and session mismatch.
	ErrInvalidToken = errors.New("csrf: token invalid")
)

// FormField is the body field the classic form path submits the token in.
const FormField = "csrf_token"

type tokenClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Service signs and verifies CSRF tokens.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService builds a token service. The secret must not be empty; the TTL
// defaults to one hour.
func NewService(secret string, ttl time.Duration) (*Service, error) {
	if secret == "" {
		return nil, errors.New("csrf: signing secret required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue mints a token bound to the given session.
func (s *Service) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("csrf: session id required")
	}
	now := s.now()
	claims := tokenClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("csrf: sign token: %w", err)
	}
	return signed, nil
}

// Validate checks a token's signature, expiry, and session binding.
func (s *Service) Validate(token, sessionID string) error {
	if token == "" {
		return ErrMissingToken
	}
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.SessionID == "" || claims.SessionID != sessionID {
		return fmt.Errorf("%w: session mismatch", ErrInvalidToken)
	}
	return nil
}

// TokenFromRequest pulls the token from the X-CSRFToken / X-CSRF-Token
// headers, falling back to the csrf_token form field. The form must already
// be parsed.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("X-CSRFToken"); token != "" {
		return token
	}
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	return r.PostFormValue(FormField)
}
