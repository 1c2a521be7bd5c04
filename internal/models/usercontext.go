package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Profile is the denormalized snapshot of farmer profile fields kept on the
// user context document. Absent fields stay absent rather than null-filled.
type Profile struct {
	Name     string   `bson:"name,omitempty" json:"name,omitempty"`
	Email    string   `bson:"email,omitempty" json:"email,omitempty"`
	Phone    string   `bson:"phone,omitempty" json:"phone,omitempty"`
	Language string   `bson:"language,omitempty" json:"language,omitempty"`
	LandSize string   `bson:"landSize,omitempty" json:"landSize,omitempty"`
	SoilType string   `bson:"soilType,omitempty" json:"soilType,omitempty"`
	Crops    []string `bson:"crops,omitempty" json:"crops,omitempty"`
}

// Location is the last known user location. It is replaced wholesale on
// every update that carries a non-empty payload, never merged field by field.
type Location struct {
	Address   string    `bson:"address,omitempty" json:"address,omitempty"`
	Latitude  *float64  `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude *float64  `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Precision string    `bson:"precision,omitempty" json:"precision,omitempty"`
	Raw       string    `bson:"raw,omitempty" json:"raw,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Empty reports whether the payload carries nothing worth storing.
func (l *Location) Empty() bool {
	if l == nil {
		return true
	}
	return l.Address == "" && l.Latitude == nil && l.Longitude == nil && l.Raw == ""
}

// Weather is the last known weather reading, replace-on-write like Location.
type Weather struct {
	Temperature              *float64  `bson:"temperature,omitempty" json:"temperature,omitempty"`
	Humidity                 *float64  `bson:"humidity,omitempty" json:"humidity,omitempty"`
	Condition                string    `bson:"condition,omitempty" json:"condition,omitempty"`
	WindSpeed                *float64  `bson:"windSpeed,omitempty" json:"windSpeed,omitempty"`
	PrecipitationProbability *float64  `bson:"precipitationProbability,omitempty" json:"precipitationProbability,omitempty"`
	Source                   string    `bson:"source,omitempty" json:"source,omitempty"`
	UpdatedAt                time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (w *Weather) Empty() bool {
	if w == nil {
		return true
	}
	return w.Temperature == nil && w.Humidity == nil && w.Condition == "" &&
		w.WindSpeed == nil && w.PrecipitationProbability == nil
}

// ChatTurn is one entry in the short recent-conversation window.
type ChatTurn struct {
	Role    string `bson:"role" json:"role"`
	Message string `bson:"message" json:"message"`
}

// UserContext is the per-user rolling context document consumed by the AI
// chat flow: profile snapshot, last known location/weather and the most
// recent chat turns (sliding window, oldest dropped first).
type UserContext struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"userId" json:"userId"`
	Profile     Profile            `bson:"profile" json:"profile"`
	Location    *Location          `bson:"location" json:"location"`
	Weather     *Weather           `bson:"weather" json:"weather"`
	RecentTurns []ChatTurn         `bson:"recentTurns" json:"recentTurns"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
