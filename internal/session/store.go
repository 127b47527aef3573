// Package session provides the redis-backed browser session store. A
// session carries the identity a CSRF token must be bound to.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// CookieName is the browser cookie holding the session id.
	CookieName = "clinic_session"

	keyPrefix = "clinic_session:"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("session: not found")

// Session is one browser session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists sessions in redis with a sliding TTL.
type Store struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewStore creates a session store. A nil client yields a nil store; the
// nil receiver is safe and behaves as an empty store.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{
		redis:  redisClient,
		tracer: otel.Tracer("clinic.internal.session"),
		ttl:    ttl,
	}
}

// Create allocates and persists a new session.
func (s *Store) Create(ctx context.Context, userID string) (*Session, error) {
	if s == nil || s.redis == nil {
		return nil, errors.New("session: store not configured")
	}
	ctx, span := s.tracer.Start(ctx, "session.create")
	defer span.End()

	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("session: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, keyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("session: store %s: %w", sess.ID, err)
	}
	return sess, nil
}

// Get loads a session and extends its TTL.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if s == nil || s.redis == nil {
		return nil, ErrNotFound
	}
	if id == "" {
		return nil, ErrNotFound
	}
	ctx, span := s.tracer.Start(ctx, "session.get")
	defer span.End()

	data, err := s.redis.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: load %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal %s: %w", id, err)
	}
	_ = s.redis.Expire(ctx, keyPrefix+id, s.ttl).Err()
	return &sess, nil
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.redis == nil || id == "" {
		return nil
	}
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	return nil
}

// NewCookie builds the session cookie for a response.
func NewCookie(sess *Session, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// IDFromRequest extracts the session id from the request cookie, or "".
func IDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
