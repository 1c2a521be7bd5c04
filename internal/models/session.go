package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is a server-side login session addressed by the sha256 hash of an
// opaque bearer token. The plaintext token is handed to the client exactly
// once at creation and never stored. Sessions are revoked, never deleted.
type Session struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	TokenHash  string             `bson:"tokenHash" json:"-"`
	UserAgent  string             `bson:"userAgent" json:"userAgent"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	LastUsedAt time.Time          `bson:"lastUsedAt" json:"lastUsedAt"`
	ExpiresAt  time.Time          `bson:"expiresAt" json:"expiresAt"`
	Revoked    bool               `bson:"revoked" json:"revoked"`
	RevokedAt  *time.Time         `bson:"revokedAt,omitempty" json:"revokedAt,omitempty"`
}

// Active reports whether the session may still be used at the given instant.
func (s *Session) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
