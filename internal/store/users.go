package store

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/identity"
	"backend/internal/models"
)

// UserStore resolves and maintains farmer accounts.
type UserStore struct {
	coll Collection
}

func NewUserStore(coll Collection) *UserStore {
	return &UserStore{coll: coll}
}

// FindByIdentifier walks the ordered lookup strategies for an arbitrary
// identifier (document id, email, phone) until one matches. A strategy that
// fails with a storage error is logged and skipped so one malformed query
// shape cannot hide a later match; no match at all is ErrNotFound.
func (s *UserStore) FindByIdentifier(ctx context.Context, identifier, farmerID string) (*models.User, error) {
	for _, query := range identity.LookupQueries(identifier, farmerID) {
		var user models.User
		err := s.coll.FindOne(ctx, query).Decode(&user)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			log.Println("[USER] [WARN] lookup strategy failed:", err)
			continue
		}
		return &user, nil
	}
	return nil, ErrNotFound
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpsertOnLogin creates or updates the account for a verified email in one
// atomic upsert. Supplied profile fields overwrite both the top-level
// convenience fields and the profile snapshot; omitted fields are retained.
// lastLogin is always bumped. The stored document is returned.
func (s *UserStore) UpsertOnLogin(ctx context.Context, email string, profile models.Profile) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("upsert user: empty email")
	}

	now := time.Now()
	set := profileSetFields(profile)
	set["lastLogin"] = now
	set["updatedAt"] = now
	if v := strings.TrimSpace(profile.Name); v != "" {
		set["name"] = v
	}
	if v := strings.TrimSpace(profile.Phone); v != "" {
		set["phone"] = v
	}
	if v := strings.TrimSpace(profile.Language); v != "" {
		set["preferredLanguage"] = v
	}

	_, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"email":     email,
			"createdAt": now,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.FindByEmail(ctx, email)
}
