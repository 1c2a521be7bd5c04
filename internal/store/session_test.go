package store_test

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/store"
	"backend/internal/store/storetest"
)

func newSessionStore() (*store.SessionStore, *storetest.Collection, *storetest.Collection) {
	sessions := storetest.NewCollection()
	users := storetest.NewCollection()
	return store.NewSessionStore(sessions, users, 30*24*time.Hour), sessions, users
}

func TestSessionCreateStoresOnlyHash(t *testing.T) {
	s, sessions, _ := newSessionStore()

	token, expiresAt, err := s.Create(context.Background(), primitive.NewObjectID(), "test-agent")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected plaintext token")
	}
	if !expiresAt.After(time.Now().Add(29 * 24 * time.Hour)) {
		t.Fatalf("expected ~30 day expiry, got %v", expiresAt)
	}

	doc := sessions.FindDoc("tokenHash", store.HashToken(token))
	if doc == nil {
		t.Fatal("expected session stored under token hash")
	}
	if doc["tokenHash"] == token {
		t.Fatal("plaintext token must not be stored")
	}
}

func TestSessionResolveRevokeLifecycle(t *testing.T) {
	s, _, users := newSessionStore()
	userID := primitive.NewObjectID()
	users.Seed(models.User{ID: userID, Email: "asha@example.com", Name: "Asha"})

	token, _, err := s.Create(context.Background(), userID, "test-agent")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	session, user, err := s.ResolveUser(context.Background(), token)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if session.UserID != userID || user.Email != "asha@example.com" {
		t.Fatalf("resolved wrong session/user: %v %v", session.UserID, user.Email)
	}

	changed, err := s.Revoke(context.Background(), token)
	if err != nil || !changed {
		t.Fatalf("expected revoke to report a change, got %v %v", changed, err)
	}

	if _, err := s.Resolve(context.Background(), token); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound after revoke, got %v", err)
	}

	// Second revoke is an idempotent no-op, not an error.
	changed, err = s.Revoke(context.Background(), token)
	if err != nil {
		t.Fatalf("second revoke errored: %v", err)
	}
	if changed {
		t.Fatal("expected second revoke to report no change")
	}
}

func TestSessionExpiryLazyRevoke(t *testing.T) {
	s, sessions, _ := newSessionStore()

	sessions.Seed(models.Session{
		UserID:     primitive.NewObjectID(),
		TokenHash:  store.HashToken("stale-token"),
		UserAgent:  "test-agent",
		CreatedAt:  time.Now().Add(-48 * time.Hour),
		LastUsedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt:  time.Now().Add(-time.Hour),
	})

	if _, err := s.Resolve(context.Background(), "stale-token"); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for expired session, got %v", err)
	}

	doc := sessions.FindDoc("tokenHash", store.HashToken("stale-token"))
	if doc == nil {
		t.Fatal("expired session must be retained for audit")
	}
	if revoked, _ := doc["revoked"].(bool); !revoked {
		t.Fatal("expected lazy revoke to mark the session revoked")
	}
	if _, ok := doc["revokedAt"]; !ok {
		t.Fatal("expected revokedAt to be set")
	}
}

func TestSessionResolveUpdatesLastUsedAt(t *testing.T) {
	s, sessions, _ := newSessionStore()
	stale := time.Now().Add(-24 * time.Hour)
	expiry := time.Now().Add(24 * time.Hour)

	sessions.Seed(models.Session{
		UserID:     primitive.NewObjectID(),
		TokenHash:  store.HashToken("live-token"),
		CreatedAt:  stale,
		LastUsedAt: stale,
		ExpiresAt:  expiry,
	})

	session, err := s.Resolve(context.Background(), "live-token")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !session.LastUsedAt.After(stale) {
		t.Fatal("expected lastUsedAt to advance on resolve")
	}
	// Activity tracking must not extend the expiry.
	doc := sessions.FindDoc("tokenHash", store.HashToken("live-token"))
	var stored models.Session
	decodeDoc(t, doc, &stored)
	if stored.ExpiresAt.Sub(expiry).Abs() > time.Second {
		t.Fatalf("expiry must be unchanged, got %v want %v", stored.ExpiresAt, expiry)
	}
}

func TestSessionResolveMalformedToken(t *testing.T) {
	s, _, _ := newSessionStore()

	for _, token := range []string{"", "garbage", "deadbeef"} {
		if _, err := s.Resolve(context.Background(), token); err != store.ErrNotFound {
			t.Fatalf("token %q: expected ErrNotFound, got %v", token, err)
		}
	}
}

func TestSessionResolveUserMissingUser(t *testing.T) {
	s, _, _ := newSessionStore()

	token, _, err := s.Create(context.Background(), primitive.NewObjectID(), "")
	if err != nil {
		t.Fatalf("create session failed: %v", err)
	}
	if _, _, err := s.ResolveUser(context.Background(), token); err != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound for orphan session, got %v", err)
	}
}
