// Package store implements the persistence core: sessions, one-time codes,
// per-user context documents and the long-form conversational memory log.
// Every mutation is an atomic keyed upsert (or a capped array push) so that
// concurrent requests for the same user never lose writes.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound covers every validation-shaped miss: unknown, revoked or
// expired session tokens, and missing documents. Callers must not be able to
// distinguish "exists but unusable" from "does not exist".
var ErrNotFound = errors.New("not found")

// SingleResult is the decodable result of a single-document lookup.
// *mongo.SingleResult satisfies it.
type SingleResult interface {
	Decode(v interface{}) error
	Err() error
}

// Collection is the narrow slice of a MongoDB collection the stores use.
// It exists so store behavior can be tested against an in-memory fake; the
// production implementation is a *mongo.Collection.
type Collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type mongoCollection struct {
	coll *mongo.Collection
}

// Wrap adapts a driver collection to the Collection interface.
func Wrap(coll *mongo.Collection) Collection {
	return mongoCollection{coll: coll}
}

func (m mongoCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) SingleResult {
	return m.coll.FindOne(ctx, filter, opts...)
}

func (m mongoCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return m.coll.UpdateOne(ctx, filter, update, opts...)
}

func (m mongoCollection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return m.coll.InsertOne(ctx, document, opts...)
}

func (m mongoCollection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return m.coll.DeleteOne(ctx, filter, opts...)
}
