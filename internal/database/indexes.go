package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}
	phoneIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "phone", Value: 1}},
		Options: options.Index().SetName("phone_index"),
	}

	log.Println("EnsureUserIndexes: creating email_unique and phone indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{emailIndex, phoneIndex})
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: indexes created")
	return nil
}

func EnsureSessionIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("sessions").Indexes()

	tokenIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "tokenHash", Value: 1}},
		Options: options.Index().
			SetName("tokenHash_unique").
			SetUnique(true),
	}

	log.Println("EnsureSessionIndexes: creating tokenHash_unique index")
	_, err := indexes.CreateOne(ctx, tokenIndex)
	if err != nil {
		log.Println("EnsureSessionIndexes: tokenHash index error:", err)
		return err
	}
	log.Println("EnsureSessionIndexes: tokenHash_unique index created")
	return nil
}

func EnsureOtpIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("otp_codes").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}
	// Native TTL expiry; the store still checks expiry lazily and never
	// depends on the background sweep having run.
	expiryIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetName("expiresAt_ttl").
			SetExpireAfterSeconds(0),
	}

	log.Println("EnsureOtpIndexes: creating email_unique and expiresAt_ttl indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{emailIndex, expiryIndex})
	if err != nil {
		log.Println("EnsureOtpIndexes: index error:", err)
		return err
	}
	log.Println("EnsureOtpIndexes: indexes created")
	return nil
}

func EnsureContextIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("user_context").Indexes()

	userIDIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().
			SetName("userId_unique").
			SetUnique(true),
	}

	log.Println("EnsureContextIndexes: creating userId_unique index")
	_, err := indexes.CreateOne(ctx, userIDIndex)
	if err != nil {
		log.Println("EnsureContextIndexes: userId index error:", err)
		return err
	}
	log.Println("EnsureContextIndexes: userId_unique index created")
	return nil
}

func EnsureMemoryIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("user_memories").Indexes()

	userKeyIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "userKey", Value: 1}},
		Options: options.Index().
			SetName("userKey_unique").
			SetUnique(true),
	}

	log.Println("EnsureMemoryIndexes: creating userKey_unique index")
	_, err := indexes.CreateOne(ctx, userKeyIndex)
	if err != nil {
		log.Println("EnsureMemoryIndexes: userKey index error:", err)
		return err
	}
	log.Println("EnsureMemoryIndexes: userKey_unique index created")
	return nil
}
