package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/palmerclinic/clinic-platform/internal/session"
)

func newSessionStore(t *testing.T) *session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return session.NewStore(client, time.Hour)
}

func TestLoadSessionAttachesSession(t *testing.T) {
	store := newSessionStore(t)
	sess, err := store.Create(context.Background(), "front-desk")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	var got *session.Session
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.AddCookie(session.NewCookie(sess, false))
	rec := httptest.NewRecorder()

	LoadSession(store, nil)(handler).ServeHTTP(rec, req)

	if got == nil {
		t.Fatal("expected session in context")
	}
	if got.ID != sess.ID || got.UserID != "front-desk" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestLoadSessionPassesThroughWithoutCookie(t *testing.T) {
	store := newSessionStore(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) != nil {
			t.Error("expected no session in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	rec := httptest.NewRecorder()

	LoadSession(store, nil)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}

func TestLoadSessionIgnoresUnknownID(t *testing.T) {
	store := newSessionStore(t)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromContext(r.Context()) != nil {
			t.Error("expected no session for unknown id")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/appointments", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "stale-id"})
	rec := httptest.NewRecorder()

	LoadSession(store, nil)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
}
