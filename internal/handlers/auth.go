package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/middleware"
	"backend/internal/models"
	"backend/internal/store"
)

// OtpMailer delivers the plaintext code out-of-band.
type OtpMailer interface {
	SendOtp(ctx context.Context, to, code string) error
}

type sendOtpRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOtpRequest struct {
	Email        string   `json:"email" binding:"required,email"`
	Otp          string   `json:"otp" binding:"required"`
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Language     string   `json:"language"`
	LandSize     string   `json:"landSize"`
	SoilType     string   `json:"soilType"`
	Crops        []string `json:"crops"`
	ValidateOnly bool     `json:"validateOnly"`
}

// SendOtp issues a fresh code for the email and delivers it by mail. The
// response never reveals whether an account exists for that address.
func SendOtp(otps *store.OtpStore, mailer OtpMailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendOtpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		code, err := otps.Issue(ctx, req.Email)
		if err != nil {
			log.Println("[OTP] [ERROR] issue failed:", err)
			respondWithError(c, http.StatusInternalServerError, "OTP", "could not send OTP")
			return
		}

		if err := mailer.SendOtp(ctx, strings.ToLower(strings.TrimSpace(req.Email)), code); err != nil {
			log.Println("[OTP] [ERROR] mail delivery failed:", err)
			respondWithError(c, http.StatusInternalServerError, "OTP", "could not send OTP")
			return
		}

		log.Println("[OTP] [INFO] code sent")
		c.JSON(http.StatusOK, gin.H{"message": "OTP sent to your email"})
	}
}

// VerifyOtp checks a code and, on success, logs the farmer in: the account
// is upserted with any supplied profile fields, a session is created and the
// context document is ensured with the profile snapshot. With validateOnly
// the code is checked without being consumed.
func VerifyOtp(users *store.UserStore, otps *store.OtpStore, sessions *store.SessionStore, contexts *store.UserContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req verifyOtpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		verify := otps.Verify
		if req.ValidateOnly {
			verify = otps.Validate
		}
		outcome, attemptsLeft, err := verify(ctx, req.Email, req.Otp)
		if err != nil {
			log.Println("[OTP] [ERROR] verification failed:", err)
			respondWithError(c, http.StatusInternalServerError, "OTP", "db error")
			return
		}

		switch outcome {
		case store.OutcomeNotFound:
			c.JSON(http.StatusBadRequest, gin.H{"error": "OTP not found. Please request a new one.", "code": "OTP_NOT_FOUND"})
			return
		case store.OutcomeExpired:
			c.JSON(http.StatusBadRequest, gin.H{"error": "OTP has expired. Please request a new one.", "code": "OTP_EXPIRED"})
			return
		case store.OutcomeTooManyAttempts:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Too many failed attempts. Please request a new OTP.", "code": "TOO_MANY_ATTEMPTS"})
			return
		case store.OutcomeInvalid:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":        "Invalid OTP.",
				"code":         "INVALID_OTP",
				"attemptsLeft": attemptsLeft,
			})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		if req.ValidateOnly {
			_, err := users.FindByEmail(ctx, email)
			exists := err == nil
			if err != nil && err != store.ErrNotFound {
				log.Println("[OTP] [ERROR] user lookup failed:", err)
				respondWithError(c, http.StatusInternalServerError, "OTP", "db error")
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"valid":         true,
				"existingUser":  exists,
				"requiresPhone": !exists,
			})
			return
		}

		profile := models.Profile{
			Name:     strings.TrimSpace(req.Name),
			Email:    email,
			Phone:    strings.TrimSpace(req.Phone),
			Language: strings.TrimSpace(req.Language),
			LandSize: strings.TrimSpace(req.LandSize),
			SoilType: strings.TrimSpace(req.SoilType),
			Crops:    req.Crops,
		}

		user, err := users.UpsertOnLogin(ctx, email, profile)
		if err != nil {
			log.Println("[AUTH] [ERROR] user upsert failed:", err)
			respondWithError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		if err := contexts.Ensure(ctx, user.ID, profile); err != nil {
			log.Println("[AUTH] [ERROR] context ensure failed:", err)
			respondWithError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		token, expiresAt, err := sessions.Create(ctx, user.ID, c.Request.UserAgent())
		if err != nil {
			log.Println("[AUTH] [ERROR] session creation failed:", err)
			respondWithError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		maxAge := int(time.Until(expiresAt).Seconds())
		c.SetCookie(middleware.SessionCookieName, token, maxAge, "/", "", false, true)

		log.Println("[AUTH] [INFO] login succeeded")
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"expiresAt": expiresAt,
			"user":      formatUser(user),
		})
	}
}

// Logout revokes the presented session. Revoking a token that is unknown or
// already revoked still answers success; logout is idempotent.
func Logout(sessions *store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := middleware.ExtractToken(c)
		if token == "" {
			respondWithError(c, http.StatusBadRequest, "AUTH", "session token is required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := sessions.Revoke(ctx, token); err != nil {
			log.Println("[AUTH] [ERROR] logout failed:", err)
			respondWithError(c, http.StatusInternalServerError, "AUTH", "db error")
			return
		}

		c.SetCookie(middleware.SessionCookieName, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	}
}

// GetMe returns the profile of the session's user.
func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get("user")
		if !ok {
			respondWithError(c, http.StatusUnauthorized, "AUTH", "unauthorized")
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": formatUser(value.(*models.User))})
	}
}

func formatUser(user *models.User) gin.H {
	return gin.H{
		"id":                user.ID.Hex(),
		"email":             user.Email,
		"name":              user.Name,
		"phone":             user.Phone,
		"photo":             user.Photo,
		"profile":           user.Profile,
		"preferredLanguage": user.PreferredLanguage,
		"createdAt":         user.CreatedAt,
		"lastLogin":         user.LastLogin,
	}
}
