package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/models"
)

// Outcome classifies a verification attempt. These are expected results, not
// errors: only infrastructure failures surface through the error return.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeNotFound
	OutcomeExpired
	OutcomeTooManyAttempts
	OutcomeInvalid
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeExpired:
		return "expired"
	case OutcomeTooManyAttempts:
		return "too_many_attempts"
	case OutcomeInvalid:
		return "invalid"
	}
	return "unknown"
}

// OtpStore keeps at most one live code per email. Issuing overwrites any
// prior record (closing the replay window of the older code), a successful
// verification consumes the record, and exhausting the attempt budget or
// passing the TTL deletes it.
type OtpStore struct {
	coll        Collection
	ttl         time.Duration
	maxAttempts int
}

func NewOtpStore(coll Collection, ttl time.Duration, maxAttempts int) *OtpStore {
	return &OtpStore{coll: coll, ttl: ttl, maxAttempts: maxAttempts}
}

// hashOtp digests email:code so neither the live code nor a rainbow-table
// of plain 6-digit codes can be read back out of the collection.
func hashOtp(email, code string) string {
	return HashToken(email + ":" + code)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateOtp draws a uniform 6-digit code; leading zeros are allowed.
func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Issue generates a fresh code for the email and upserts its record,
// invalidating any previously issued code and resetting the attempt count.
// The plaintext code is returned for out-of-band delivery.
func (s *OtpStore) Issue(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", fmt.Errorf("issue otp: empty email")
	}

	code, err := generateOtp()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	now := time.Now()
	_, err = s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
		"$set": bson.M{
			"otpHash":       hashOtp(email, code),
			"expiresAt":     now.Add(s.ttl),
			"attempts":      0,
			"createdAt":     now,
			"lastAttemptAt": nil,
		},
	}, options.Update().SetUpsert(true))
	if err != nil {
		return "", fmt.Errorf("persist otp record: %w", err)
	}
	return code, nil
}

// Verify checks a candidate code and consumes the record when it matches
// (one-time use). The attempts-remaining count is returned alongside
// OutcomeInvalid so callers can surface it; for every other outcome it is
// zero.
func (s *OtpStore) Verify(ctx context.Context, email, code string) (Outcome, int, error) {
	return s.verify(ctx, email, code, true)
}

// Validate behaves like Verify for every failure path (expiry and attempt
// bookkeeping included) but keeps the record alive on a match, only bumping
// lastAttemptAt. Used when the caller wants to check a code before
// committing to the login step.
func (s *OtpStore) Validate(ctx context.Context, email, code string) (Outcome, int, error) {
	return s.verify(ctx, email, code, false)
}

func (s *OtpStore) verify(ctx context.Context, email, code string, consume bool) (Outcome, int, error) {
	email = normalizeEmail(email)

	var record models.OtpRecord
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return OutcomeNotFound, 0, nil
	}
	if err != nil {
		return OutcomeNotFound, 0, fmt.Errorf("find otp record: %w", err)
	}

	now := time.Now()
	if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
		if err := s.delete(ctx, email); err != nil {
			return OutcomeExpired, 0, err
		}
		return OutcomeExpired, 0, nil
	}

	if record.Attempts >= s.maxAttempts {
		if err := s.delete(ctx, email); err != nil {
			return OutcomeTooManyAttempts, 0, err
		}
		return OutcomeTooManyAttempts, 0, nil
	}

	if record.OtpHash != hashOtp(email, code) {
		next := record.Attempts + 1
		if next >= s.maxAttempts {
			if err := s.delete(ctx, email); err != nil {
				return OutcomeTooManyAttempts, 0, err
			}
			return OutcomeTooManyAttempts, 0, nil
		}
		_, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
			"$set": bson.M{"attempts": next, "lastAttemptAt": now},
		})
		if err != nil {
			return OutcomeInvalid, 0, fmt.Errorf("record otp attempt: %w", err)
		}
		return OutcomeInvalid, s.maxAttempts - next, nil
	}

	if !consume {
		_, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{
			"$set": bson.M{"lastAttemptAt": now},
		})
		if err != nil {
			return OutcomeValid, 0, fmt.Errorf("touch otp record: %w", err)
		}
		return OutcomeValid, 0, nil
	}

	// Correct code: single use, consume the record.
	if err := s.delete(ctx, email); err != nil {
		return OutcomeValid, 0, err
	}
	return OutcomeValid, 0, nil
}

func (s *OtpStore) delete(ctx context.Context, email string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"email": email}); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}
