package store_test

import (
	"context"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/store"
	"backend/internal/store/storetest"
)

func newContextStore() (*store.UserContextStore, *storetest.Collection) {
	coll := storetest.NewCollection()
	return store.NewUserContextStore(coll, 5), coll
}

func floatPtr(v float64) *float64 { return &v }

func TestEnsureIdempotent(t *testing.T) {
	s, coll := newContextStore()
	userID := primitive.NewObjectID()

	if err := s.Ensure(context.Background(), userID, models.Profile{Name: "Asha"}); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := s.Ensure(context.Background(), userID, models.Profile{Name: "Asha"}); err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if coll.Count() != 1 {
		t.Fatalf("expected one document, got %d", coll.Count())
	}

	doc, err := s.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if doc.Profile.Name != "Asha" {
		t.Fatalf("expected profile name, got %q", doc.Profile.Name)
	}
	if doc.Location != nil || doc.Weather != nil {
		t.Fatal("expected null location/weather on creation")
	}
	if len(doc.RecentTurns) != 0 {
		t.Fatalf("expected empty turn window, got %v", doc.RecentTurns)
	}
}

func TestEnsurePreservesGeoState(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	_, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{Name: "Asha"},
		&models.Location{Address: "Pune", Latitude: floatPtr(18.52), Longitude: floatPtr(73.85)},
		&models.Weather{Temperature: floatPtr(31), Condition: "clear"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// A later profile-only ensure must never null out geo/weather state.
	if err := s.Ensure(context.Background(), userID, models.Profile{Language: "mr"}); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	doc, err := s.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if doc.Location == nil || doc.Location.Address != "Pune" {
		t.Fatalf("expected location preserved, got %+v", doc.Location)
	}
	if doc.Weather == nil || doc.Weather.Condition != "clear" {
		t.Fatalf("expected weather preserved, got %+v", doc.Weather)
	}
	if doc.Profile.Name != "Asha" || doc.Profile.Language != "mr" {
		t.Fatalf("expected merged profile, got %+v", doc.Profile)
	}
}

func TestLocationReplacedWholesale(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	_, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{},
		&models.Location{Address: "A", Raw: "raw text from A"}, nil)
	if err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	doc, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{},
		&models.Location{Address: "B", Latitude: floatPtr(1), Longitude: floatPtr(2)}, nil)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	if doc.Location.Address != "B" || doc.Location.Latitude == nil || *doc.Location.Latitude != 1 {
		t.Fatalf("expected replacement location, got %+v", doc.Location)
	}
	if doc.Location.Raw != "" {
		t.Fatalf("expected no residual fields from prior location, got %q", doc.Location.Raw)
	}
}

func TestEmptyPayloadsLeaveStateUntouched(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	_, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{},
		&models.Location{Address: "Pune"}, &models.Weather{Condition: "cloudy"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	doc, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{}, &models.Location{}, nil)
	if err != nil {
		t.Fatalf("empty update failed: %v", err)
	}
	if doc.Location == nil || doc.Location.Address != "Pune" {
		t.Fatalf("empty location payload must not reset stored location, got %+v", doc.Location)
	}
	if doc.Weather == nil || doc.Weather.Condition != "cloudy" {
		t.Fatalf("absent weather payload must not reset stored weather, got %+v", doc.Weather)
	}
}

func TestWeatherDefaultsSource(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	doc, err := s.UpdateLocationAndWeather(context.Background(), userID, models.Profile{}, nil,
		&models.Weather{Temperature: floatPtr(28)})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if doc.Weather.Source != "app" {
		t.Fatalf("expected default weather source, got %q", doc.Weather.Source)
	}
}

func TestAppendTurnsSlidingWindow(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	if err := s.Ensure(context.Background(), userID, models.Profile{Name: "Asha"}); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	for i := 0; i < 6; i++ {
		_, err := s.AppendTurns(context.Background(), userID, models.Profile{}, []models.ChatTurn{
			{Role: "user", Message: fmt.Sprintf("turn-%d", i)},
		})
		if err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}

	doc, err := s.Fetch(context.Background(), userID)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(doc.RecentTurns) != 5 {
		t.Fatalf("expected window of 5, got %d", len(doc.RecentTurns))
	}
	for i, turn := range doc.RecentTurns {
		want := fmt.Sprintf("turn-%d", i+1)
		if turn.Message != want {
			t.Fatalf("turn %d: expected %q, got %q", i, want, turn.Message)
		}
	}
}

func TestAppendBatchLargerThanWindow(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	var turns []models.ChatTurn
	for i := 0; i < 7; i++ {
		turns = append(turns, models.ChatTurn{Role: "user", Message: fmt.Sprintf("turn-%d", i)})
	}
	doc, err := s.AppendTurns(context.Background(), userID, models.Profile{}, turns)
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(doc.RecentTurns) != 5 {
		t.Fatalf("expected window of 5, got %d", len(doc.RecentTurns))
	}
	if doc.RecentTurns[0].Message != "turn-2" || doc.RecentTurns[4].Message != "turn-6" {
		t.Fatalf("expected most recent turns in order, got %v", doc.RecentTurns)
	}
}

func TestAppendFiltersBlankMessages(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	doc, err := s.AppendTurns(context.Background(), userID, models.Profile{}, []models.ChatTurn{
		{Role: "user", Message: "   "},
		{Role: "assistant", Message: ""},
		{Role: "assistant", Message: "hello"},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(doc.RecentTurns) != 1 || doc.RecentTurns[0].Message != "hello" {
		t.Fatalf("expected blank turns dropped, got %v", doc.RecentTurns)
	}
}

func TestAppendEmptyBatchIsNoop(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	_, err := s.AppendTurns(context.Background(), userID, models.Profile{}, []models.ChatTurn{
		{Role: "user", Message: "hello"},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}

	doc, err := s.AppendTurns(context.Background(), userID, models.Profile{}, nil)
	if err != nil {
		t.Fatalf("empty append failed: %v", err)
	}
	if len(doc.RecentTurns) != 1 {
		t.Fatalf("expected current state returned unchanged, got %v", doc.RecentTurns)
	}
}

func TestAppendLazilyCreatesWithProfileHint(t *testing.T) {
	s, coll := newContextStore()
	userID := primitive.NewObjectID()

	_, err := s.AppendTurns(context.Background(), userID, models.Profile{Name: "Asha"}, []models.ChatTurn{
		{Role: "user", Message: "hello"},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if coll.Count() != 1 {
		t.Fatalf("expected lazily created document, got %d", coll.Count())
	}
	doc, _ := s.Fetch(context.Background(), userID)
	if doc.Profile.Name != "Asha" {
		t.Fatalf("expected profile hint applied, got %+v", doc.Profile)
	}
}

func TestAppendCoercesUnknownRole(t *testing.T) {
	s, _ := newContextStore()
	userID := primitive.NewObjectID()

	doc, err := s.AppendTurns(context.Background(), userID, models.Profile{}, []models.ChatTurn{
		{Role: "system", Message: "hello"},
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if doc.RecentTurns[0].Role != "user" {
		t.Fatalf("expected unknown role coerced to user, got %q", doc.RecentTurns[0].Role)
	}
}

func TestFetchUnknownUser(t *testing.T) {
	s, _ := newContextStore()

	doc, err := s.Fetch(context.Background(), primitive.NewObjectID())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if doc != nil {
		t.Fatalf("expected nil for unknown user, got %+v", doc)
	}
}
