package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// UserContextStore maintains the per-user rolling context document: profile
// snapshot, last known location/weather and a short sliding window of recent
// chat turns. All writes are single atomic upserts keyed on userId, so
// concurrent requests for the same user cannot lose each other's effects.
type UserContextStore struct {
	coll   Collection
	window int
}

func NewUserContextStore(coll Collection, window int) *UserContextStore {
	return &UserContextStore{coll: coll, window: window}
}

// profileSetFields maps each supplied profile field onto a dotted $set path.
// Omitted fields are left out entirely so existing values survive the merge.
func profileSetFields(p models.Profile) bson.M {
	fields := bson.M{}
	if v := strings.TrimSpace(p.Name); v != "" {
		fields["profile.name"] = v
	}
	if v := strings.TrimSpace(p.Email); v != "" {
		fields["profile.email"] = strings.ToLower(v)
	}
	if v := strings.TrimSpace(p.Phone); v != "" {
		fields["profile.phone"] = v
	}
	if v := strings.TrimSpace(p.Language); v != "" {
		fields["profile.language"] = v
	}
	if v := strings.TrimSpace(p.LandSize); v != "" {
		fields["profile.landSize"] = v
	}
	if v := strings.TrimSpace(p.SoilType); v != "" {
		fields["profile.soilType"] = v
	}
	if len(p.Crops) > 0 {
		fields["profile.crops"] = p.Crops
	}
	return fields
}

// Ensure idempotently creates the context document for a user, merging any
// supplied profile fields into the snapshot. Location and weather are only
// defaulted on insert and never touched by profile updates.
func (s *UserContextStore) Ensure(ctx context.Context, userID primitive.ObjectID, profile models.Profile) error {
	if userID.IsZero() {
		return nil
	}

	now := time.Now()
	set := profileSetFields(profile)
	set["updatedAt"] = now

	_, err := s.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"userId":      userID,
			"location":    nil,
			"weather":     nil,
			"recentTurns": []models.ChatTurn{},
			"createdAt":   now,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ensure user context: %w", err)
	}
	return nil
}

// UpdateLocationAndWeather ensures the document exists (first-time creation
// is allowed here), then replaces location and/or weather wholesale when a
// non-empty payload is supplied. Empty payloads leave the stored values
// untouched rather than resetting them to null.
func (s *UserContextStore) UpdateLocationAndWeather(ctx context.Context, userID primitive.ObjectID, profile models.Profile, location *models.Location, weather *models.Weather) (*models.UserContext, error) {
	if userID.IsZero() {
		return nil, nil
	}
	if err := s.Ensure(ctx, userID, profile); err != nil {
		return nil, err
	}

	now := time.Now()
	set := bson.M{"updatedAt": now}
	if !location.Empty() {
		loc := *location
		loc.UpdatedAt = now
		set["location"] = loc
	}
	if !weather.Empty() {
		w := *weather
		if w.Source == "" {
			w.Source = "app"
		}
		w.UpdatedAt = now
		set["weather"] = w
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": set}); err != nil {
		return nil, fmt.Errorf("update location and weather: %w", err)
	}
	return s.Fetch(ctx, userID)
}

// AppendTurns appends chat turns to the recent window, keeping only the most
// recent entries once the window size is exceeded. Blank messages are
// dropped; an empty effective batch is a no-op that still returns the
// current document. A missing document is lazily created with the supplied
// profile hint.
func (s *UserContextStore) AppendTurns(ctx context.Context, userID primitive.ObjectID, profile models.Profile, turns []models.ChatTurn) (*models.UserContext, error) {
	if userID.IsZero() {
		return nil, nil
	}
	if err := s.Ensure(ctx, userID, profile); err != nil {
		return nil, err
	}

	entries := make([]models.ChatTurn, 0, len(turns))
	for _, turn := range turns {
		if strings.TrimSpace(turn.Message) == "" {
			continue
		}
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		entries = append(entries, models.ChatTurn{Role: role, Message: turn.Message})
	}
	if len(entries) == 0 {
		return s.Fetch(ctx, userID)
	}

	// The push and the cap are one storage-level operation; computing the
	// window in the caller would lose writes under concurrency.
	_, err := s.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{
		"$push": bson.M{
			"recentTurns": bson.M{
				"$each":  entries,
				"$slice": -s.window,
			},
		},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("append chat turns: %w", err)
	}
	return s.Fetch(ctx, userID)
}

// Fetch returns the context document, or nil when the user has none yet.
func (s *UserContextStore) Fetch(ctx context.Context, userID primitive.ObjectID) (*models.UserContext, error) {
	if userID.IsZero() {
		return nil, nil
	}
	var doc models.UserContext
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch user context: %w", err)
	}
	return &doc, nil
}
