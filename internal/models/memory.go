package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryEntry is one line of long-form conversational memory.
type MemoryEntry struct {
	Role      string                 `bson:"role" json:"role"`
	Content   string                 `bson:"content" json:"content"`
	Metadata  map[string]interface{} `bson:"metadata" json:"metadata"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}

// MemoryDocument is the deeper append-only history kept per normalized user
// key, separate from the 5-turn UserContext window: the entries cap is much
// larger and the key space may be phone-derived for legacy clients.
type MemoryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserKey   string             `bson:"userKey" json:"userKey"`
	Entries   []MemoryEntry      `bson:"entries" json:"entries"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
