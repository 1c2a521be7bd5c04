package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/store"
	"backend/internal/store/storetest"
)

func newMemoryStore() (*store.MemoryStore, *storetest.Collection) {
	coll := storetest.NewCollection()
	return store.NewMemoryStore(coll, 200, 10), coll
}

func TestMemoryAppendCap(t *testing.T) {
	s, coll := newMemoryStore()
	key := primitive.NewObjectID().Hex()

	for batch := 0; batch < 21; batch++ {
		var entries []models.MemoryEntry
		for i := 0; i < 10; i++ {
			entries = append(entries, models.MemoryEntry{
				Role:    "user",
				Content: fmt.Sprintf("entry-%d", batch*10+i),
			})
		}
		if err := s.AppendEntries(context.Background(), key, entries); err != nil {
			t.Fatalf("append batch %d failed: %v", batch, err)
		}
	}

	// 210 appended, cap is 200: the oldest 10 must be gone.
	entries, err := s.GetEntries(context.Background(), key, 200)
	if err != nil {
		t.Fatalf("get entries failed: %v", err)
	}
	if len(entries) != 200 {
		t.Fatalf("expected 200 entries, got %d", len(entries))
	}
	if entries[0].Content != "entry-10" {
		t.Fatalf("expected oldest surviving entry entry-10, got %q", entries[0].Content)
	}
	if entries[199].Content != "entry-209" {
		t.Fatalf("expected newest entry entry-209, got %q", entries[199].Content)
	}

	var doc models.MemoryDocument
	decodeDoc(t, coll.FindDoc("userKey", key), &doc)
	if len(doc.Entries) != 200 {
		t.Fatalf("stored log must be truncated to the cap, got %d", len(doc.Entries))
	}
}

func TestMemoryAppendDefaults(t *testing.T) {
	s, _ := newMemoryStore()
	key := "9876543210"

	if err := s.AppendEntries(context.Background(), key, []models.MemoryEntry{{Content: "advice"}}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	entries, err := s.GetEntries(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("get entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if entries[0].Role != "assistant" {
		t.Fatalf("expected default role assistant, got %q", entries[0].Role)
	}
	if entries[0].Timestamp.IsZero() {
		t.Fatal("expected default timestamp")
	}
	if time.Since(entries[0].Timestamp) > time.Minute {
		t.Fatalf("expected recent timestamp, got %v", entries[0].Timestamp)
	}
}

func TestMemoryGetEntriesDefaultSlice(t *testing.T) {
	s, _ := newMemoryStore()
	key := "9876543210"

	var entries []models.MemoryEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, models.MemoryEntry{Role: "user", Content: fmt.Sprintf("entry-%d", i)})
	}
	if err := s.AppendEntries(context.Background(), key, entries); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	got, err := s.GetEntries(context.Background(), key, 0)
	if err != nil {
		t.Fatalf("get entries failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected default slice of 10, got %d", len(got))
	}
	if got[0].Content != "entry-5" || got[9].Content != "entry-14" {
		t.Fatalf("expected the most recent 10 in order, got %v..%v", got[0].Content, got[9].Content)
	}
}

func TestMemoryReadDoesNotMutate(t *testing.T) {
	s, coll := newMemoryStore()
	key := "9876543210"

	var entries []models.MemoryEntry
	for i := 0; i < 15; i++ {
		entries = append(entries, models.MemoryEntry{Role: "user", Content: fmt.Sprintf("entry-%d", i)})
	}
	if err := s.AppendEntries(context.Background(), key, entries); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	if _, err := s.GetEntries(context.Background(), key, 3); err != nil {
		t.Fatalf("get entries failed: %v", err)
	}

	var doc models.MemoryDocument
	decodeDoc(t, coll.FindDoc("userKey", key), &doc)
	if len(doc.Entries) != 15 {
		t.Fatalf("bounded read must not truncate stored entries, got %d", len(doc.Entries))
	}
}

func TestMemoryLazyCreationOnRead(t *testing.T) {
	s, coll := newMemoryStore()

	entries, err := s.GetEntries(context.Background(), "9876543210", 0)
	if err != nil {
		t.Fatalf("get entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty history, got %v", entries)
	}
	if coll.Count() != 1 {
		t.Fatalf("expected lazily created document, got %d", coll.Count())
	}
}

func TestMemoryUnresolvableKeyIsNoop(t *testing.T) {
	s, coll := newMemoryStore()

	key, err := s.EnsureDocument(context.Background(), "   ", "")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if key != "" {
		t.Fatalf("expected unresolvable key, got %q", key)
	}

	if err := s.AppendEntries(context.Background(), "", []models.MemoryEntry{{Content: "lost"}}); err != nil {
		t.Fatalf("append errored: %v", err)
	}
	entries, err := s.GetEntries(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("get entries errored: %v", err)
	}
	if entries != nil || coll.Count() != 0 {
		t.Fatalf("expected safe no-op for unresolvable key, entries=%v docs=%d", entries, coll.Count())
	}
}

func TestMemoryKeyFallback(t *testing.T) {
	s, _ := newMemoryStore()

	key, err := s.EnsureDocument(context.Background(), "", "9876543210")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if key != "9876543210" {
		t.Fatalf("expected fallback key, got %q", key)
	}
}
