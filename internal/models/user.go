package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the farmer account. Accounts are created through OTP verification,
// so there is no password; email is the unique login identifier and phone is
// kept both top-level and inside the profile snapshot for legacy lookups.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email             string             `bson:"email" json:"email"`
	Name              string             `bson:"name" json:"name"`
	Phone             string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Photo             string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Profile           Profile            `bson:"profile" json:"profile"`
	PreferredLanguage string             `bson:"preferredLanguage,omitempty" json:"preferredLanguage,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
	LastLogin         *time.Time         `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
}
