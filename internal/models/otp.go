package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OtpRecord holds at most one live one-time code per email. A new request
// overwrites the previous record, so only the latest issued code verifies.
type OtpRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email         string             `bson:"email" json:"email"`
	OtpHash       string             `bson:"otpHash" json:"-"`
	ExpiresAt     time.Time          `bson:"expiresAt" json:"expiresAt"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	LastAttemptAt *time.Time         `bson:"lastAttemptAt" json:"lastAttemptAt,omitempty"`
}
