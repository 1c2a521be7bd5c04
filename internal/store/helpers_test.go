package store_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func decodeDoc(t *testing.T, doc bson.M, out interface{}) {
	t.Helper()
	if doc == nil {
		t.Fatal("expected document, got nil")
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal doc: %v", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode doc: %v", err)
	}
}
