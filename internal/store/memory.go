package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/identity"
	"backend/internal/models"
)

// MemoryStore is the deeper conversational memory: a bounded append log per
// normalized user key, independent of the UserContext window. An
// unresolvable key makes every operation a safe no-op instead of an error.
type MemoryStore struct {
	coll         Collection
	maxEntries   int
	defaultSlice int
}

func NewMemoryStore(coll Collection, maxEntries, defaultSlice int) *MemoryStore {
	return &MemoryStore{coll: coll, maxEntries: maxEntries, defaultSlice: defaultSlice}
}

// EnsureDocument lazily creates the memory document for a key and returns
// the normalized key, or "" when the key cannot be resolved.
func (s *MemoryStore) EnsureDocument(ctx context.Context, userKey, fallback string) (string, error) {
	key := identity.NormalizeKey(userKey, fallback)
	if key == "" {
		return "", nil
	}

	now := time.Now()
	_, err := s.coll.UpdateOne(ctx, bson.M{"userKey": key}, bson.M{
		"$setOnInsert": bson.M{
			"userKey":   key,
			"entries":   []models.MemoryEntry{},
			"createdAt": now,
		},
		"$set": bson.M{"updatedAt": now},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("ensure memory document: %w", err)
	}
	return key, nil
}

// GetEntries returns the most recent limit entries without mutating state.
// limit <= 0 falls back to the configured default slice.
func (s *MemoryStore) GetEntries(ctx context.Context, userKey string, limit int) ([]models.MemoryEntry, error) {
	key, err := s.EnsureDocument(ctx, userKey, "")
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = s.defaultSlice
	}

	var doc models.MemoryDocument
	err = s.coll.FindOne(ctx, bson.M{"userKey": key}, options.FindOne().SetProjection(bson.M{
		"entries": bson.M{"$slice": -limit},
	})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read memory entries: %w", err)
	}
	return doc.Entries, nil
}

// AppendEntries appends to the log and truncates it to the configured cap in
// the same storage operation. Entries default to role assistant and a
// timestamp of now when unspecified.
func (s *MemoryStore) AppendEntries(ctx context.Context, userKey string, newEntries []models.MemoryEntry) error {
	key, err := s.EnsureDocument(ctx, userKey, "")
	if err != nil {
		return err
	}
	if key == "" || len(newEntries) == 0 {
		return nil
	}

	now := time.Now()
	entries := make([]models.MemoryEntry, 0, len(newEntries))
	for _, entry := range newEntries {
		if entry.Role == "" {
			entry.Role = "assistant"
		}
		if entry.Metadata == nil {
			entry.Metadata = map[string]interface{}{}
		}
		if entry.Timestamp.IsZero() {
			entry.Timestamp = now
		}
		entries = append(entries, entry)
	}

	_, err = s.coll.UpdateOne(ctx, bson.M{"userKey": key}, bson.M{
		"$push": bson.M{
			"entries": bson.M{
				"$each":  entries,
				"$slice": -s.maxEntries,
			},
		},
		"$set": bson.M{"updatedAt": now},
	})
	if err != nil {
		return fmt.Errorf("append memory entries: %w", err)
	}
	return nil
}
