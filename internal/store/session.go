package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"backend/internal/models"
)

const sessionTokenBytes = 48

// SessionStore manages opaque bearer tokens bound to a user. Only the sha256
// hash of a token is persisted; expiry is detected lazily at resolve time and
// flips the record to revoked so the audit trail stays intact.
type SessionStore struct {
	sessions Collection
	users    Collection
	ttl      time.Duration
}

func NewSessionStore(sessions, users Collection, ttl time.Duration) *SessionStore {
	return &SessionStore{sessions: sessions, users: users, ttl: ttl}
}

// HashToken is the deterministic digest used to look tokens up by value.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new session for the user and returns the plaintext token
// exactly once, together with its expiry.
func (s *SessionStore) Create(ctx context.Context, userID primitive.ObjectID, userAgent string) (string, time.Time, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	token := hex.EncodeToString(buf)

	now := time.Now()
	expiresAt := now.Add(s.ttl)
	if userAgent == "" {
		userAgent = "unknown"
	}

	session := models.Session{
		UserID:     userID,
		TokenHash:  HashToken(token),
		UserAgent:  userAgent,
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  expiresAt,
		Revoked:    false,
	}
	if _, err := s.sessions.InsertOne(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("insert session: %w", err)
	}
	return token, expiresAt, nil
}

// Resolve looks a session up by its plaintext token. A session already past
// its expiry is marked revoked before ErrNotFound is reported; a live hit
// updates lastUsedAt as a side effect without extending the expiry.
func (s *SessionStore) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}

	var session models.Session
	err := s.sessions.FindOne(ctx, bson.M{
		"tokenHash": HashToken(token),
		"revoked":   bson.M{"$ne": true},
	}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	now := time.Now()
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(now) {
		if _, err := s.sessions.UpdateOne(ctx, bson.M{"_id": session.ID}, bson.M{
			"$set": bson.M{"revoked": true, "revokedAt": now},
		}); err != nil {
			return nil, fmt.Errorf("revoke expired session: %w", err)
		}
		return nil, ErrNotFound
	}

	if _, err := s.sessions.UpdateOne(ctx, bson.M{"_id": session.ID}, bson.M{
		"$set": bson.M{"lastUsedAt": now},
	}); err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	session.LastUsedAt = now
	return &session, nil
}

// ResolveUser resolves the session and loads the bound user document. A
// session pointing at a missing user collapses to ErrNotFound.
func (s *SessionStore) ResolveUser(ctx context.Context, token string) (*models.Session, *models.User, error) {
	session, err := s.Resolve(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	var user models.User
	err = s.users.FindOne(ctx, bson.M{"_id": session.UserID}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find session user: %w", err)
	}
	return session, &user, nil
}

// Revoke marks a non-revoked session revoked and reports whether a change
// occurred. Revoking an unknown or already-revoked token is not an error.
func (s *SessionStore) Revoke(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	res, err := s.sessions.UpdateOne(ctx, bson.M{
		"tokenHash": HashToken(token),
		"revoked":   bson.M{"$ne": true},
	}, bson.M{
		"$set": bson.M{"revoked": true, "revokedAt": time.Now()},
	})
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}
	return res.ModifiedCount > 0, nil
}
