// Package storetest provides an in-memory Collection fake covering the
// operator subset the stores rely on: equality and $ne filters, $set with
// dotted paths, $setOnInsert, upsert, $push with $each/$slice, DeleteOne and
// $slice projections. Store behavior tests run against it without a
// database.
package storetest

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/store"
)

// Collection is a thread-safe in-memory stand-in for a Mongo collection.
type Collection struct {
	mu   sync.Mutex
	docs []bson.M
}

func NewCollection() *Collection {
	return &Collection{}
}

// Seed inserts a document directly, bypassing update semantics.
func (c *Collection) Seed(doc interface{}) {
	normalized, err := toDoc(doc)
	if err != nil {
		panic(fmt.Sprintf("storetest: seed: %v", err))
	}
	if _, ok := normalized["_id"]; !ok {
		normalized["_id"] = primitive.NewObjectID()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, normalized)
}

// Count reports the number of stored documents.
func (c *Collection) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// FindDoc returns a copy of the first document whose field equals value, or
// nil. Intended for direct store inspection in tests.
func (c *Collection) FindDoc(field string, value interface{}) bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, doc := range c.docs {
		if dv, ok := lookupPath(doc, field); ok && equalValues(dv, value) {
			return copyDoc(doc)
		}
	}
	return nil
}

func (c *Collection) FindOne(_ context.Context, filter interface{}, opts ...*options.FindOneOptions) store.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return singleResult{err: err}
	}
	idx := c.matchIndex(f)
	if idx < 0 {
		return singleResult{err: mongo.ErrNoDocuments}
	}

	doc := copyDoc(c.docs[idx])
	for _, opt := range opts {
		if opt != nil && opt.Projection != nil {
			proj, err := toDoc(opt.Projection)
			if err != nil {
				return singleResult{err: err}
			}
			applyProjection(doc, proj)
		}
	}
	return singleResult{doc: doc}
}

func (c *Collection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return nil, err
	}
	u, err := toDoc(update)
	if err != nil {
		return nil, err
	}

	idx := c.matchIndex(f)
	if idx >= 0 {
		doc := c.docs[idx]
		applySet(doc, u)
		applyPush(doc, u)
		return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
	}

	upsert := false
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil && *opt.Upsert {
			upsert = true
		}
	}
	if !upsert {
		return &mongo.UpdateResult{}, nil
	}

	doc := bson.M{}
	for field, value := range f {
		if _, isOperator := value.(bson.M); !isOperator {
			setPath(doc, field, value)
		}
	}
	if onInsert, ok := u["$setOnInsert"].(bson.M); ok {
		for field, value := range onInsert {
			setPath(doc, field, value)
		}
	}
	applySet(doc, u)
	applyPush(doc, u)
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	c.docs = append(c.docs, doc)
	return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: doc["_id"]}, nil
}

func (c *Collection) InsertOne(_ context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	doc, err := toDoc(document)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"]}, nil
}

func (c *Collection) DeleteOne(_ context.Context, filter interface{}, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := toDoc(filter)
	if err != nil {
		return nil, err
	}
	idx := c.matchIndex(f)
	if idx < 0 {
		return &mongo.DeleteResult{}, nil
	}
	c.docs = append(c.docs[:idx], c.docs[idx+1:]...)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

type singleResult struct {
	doc bson.M
	err error
}

func (r singleResult) Decode(v interface{}) error {
	if r.err != nil {
		return r.err
	}
	raw, err := bson.Marshal(r.doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, v)
}

func (r singleResult) Err() error {
	return r.err
}

// matchIndex returns the index of the first document matching the filter.
// Caller holds the lock.
func (c *Collection) matchIndex(filter bson.M) int {
	for i, doc := range c.docs {
		if matches(doc, filter) {
			return i
		}
	}
	return -1
}

func matches(doc, filter bson.M) bool {
	for field, cond := range filter {
		value, exists := lookupPath(doc, field)
		if condDoc, ok := cond.(bson.M); ok {
			if ne, has := condDoc["$ne"]; has {
				if exists && equalValues(value, ne) {
					return false
				}
				continue
			}
		}
		if !exists || !equalValues(value, cond) {
			return false
		}
	}
	return true
}

func applySet(doc, update bson.M) {
	set, ok := update["$set"].(bson.M)
	if !ok {
		return
	}
	for field, value := range set {
		setPath(doc, field, value)
	}
}

func applyPush(doc, update bson.M) {
	push, ok := update["$push"].(bson.M)
	if !ok {
		return
	}
	for field, rawSpec := range push {
		spec, ok := rawSpec.(bson.M)
		if !ok {
			continue
		}
		arr, _ := lookupPath(doc, field)
		list, _ := arr.(primitive.A)
		if each, ok := spec["$each"].(primitive.A); ok {
			list = append(list, each...)
		}
		if sliceRaw, ok := spec["$slice"]; ok {
			list = applySlice(list, toInt(sliceRaw))
		}
		setPath(doc, field, list)
	}
}

func applyProjection(doc, projection bson.M) {
	for field, rawSpec := range projection {
		spec, ok := rawSpec.(bson.M)
		if !ok {
			continue
		}
		sliceRaw, ok := spec["$slice"]
		if !ok {
			continue
		}
		if value, exists := lookupPath(doc, field); exists {
			if list, ok := value.(primitive.A); ok {
				setPath(doc, field, applySlice(list, toInt(sliceRaw)))
			}
		}
	}
}

func applySlice(list primitive.A, n int) primitive.A {
	switch {
	case n < 0:
		if len(list) > -n {
			return append(primitive.A{}, list[len(list)+n:]...)
		}
	case n >= 0:
		if len(list) > n {
			return append(primitive.A{}, list[:n]...)
		}
	}
	return list
}

func lookupPath(doc bson.M, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		value, ok := current[part]
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return value, true
		}
		next, ok := value.(bson.M)
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

func setPath(doc bson.M, path string, value interface{}) {
	parts := strings.Split(path, ".")
	current := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			current[part] = value
			return
		}
		next, ok := current[part].(bson.M)
		if !ok {
			next = bson.M{}
			current[part] = next
		}
		current = next
	}
}

// toDoc normalizes any document-shaped value (struct, bson.M) into a bson.M
// of canonical bson types so stored values and filter values compare
// consistently.
func toDoc(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	normalized, _ := normalizeValue(doc).(bson.M)
	return normalized, nil
}

// normalizeValue rewrites decoded values so embedded documents are always
// bson.M; the driver's default type map decodes them as primitive.D, which
// would defeat the bson.M assertions above.
func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case bson.M:
		for key, value := range t {
			t[key] = normalizeValue(value)
		}
		return t
	case primitive.D:
		m := bson.M{}
		for _, elem := range t {
			m[elem.Key] = normalizeValue(elem.Value)
		}
		return m
	case primitive.A:
		for i, value := range t {
			t[i] = normalizeValue(value)
		}
		return t
	}
	return v
}

func copyDoc(doc bson.M) bson.M {
	copied, err := toDoc(doc)
	if err != nil {
		panic(fmt.Sprintf("storetest: copy: %v", err))
	}
	return copied
}

func equalValues(a, b interface{}) bool {
	return reflect.DeepEqual(normValue(a), normValue(b))
}

func normValue(v interface{}) interface{} {
	doc, err := toDoc(bson.M{"v": v})
	if err != nil {
		return v
	}
	return doc["v"]
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}
