package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"backend/internal/models"
	"backend/internal/store"
)

// WeatherService resolves current conditions for a coordinate pair.
type WeatherService interface {
	Current(ctx context.Context, lat, lon float64) (*models.Weather, error)
}

type updateContextRequest struct {
	Profile  *models.Profile  `json:"profile"`
	Location *models.Location `json:"location"`
	Weather  *models.Weather  `json:"weather"`
}

// GetUserContext returns the session user's context document, creating an
// empty one if the user has never chatted before.
func GetUserContext(contexts *store.UserContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		user := c.MustGet("user").(*models.User)
		if err := contexts.Ensure(ctx, userID, user.Profile); err != nil {
			log.Println("[CONTEXT] [ERROR] ensure failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CONTEXT", "db error")
			return
		}

		doc, err := contexts.Fetch(ctx, userID)
		if err != nil {
			log.Println("[CONTEXT] [ERROR] fetch failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CONTEXT", "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"context": doc})
	}
}

// UpdateUserContext merges the supplied profile fields and replaces location
// and weather when present. Absent sections are left untouched.
func UpdateUserContext(contexts *store.UserContextStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		var req updateContextRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		profile := models.Profile{}
		if req.Profile != nil {
			profile = *req.Profile
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		doc, err := contexts.UpdateLocationAndWeather(ctx, userID, profile, req.Location, req.Weather)
		if err != nil {
			log.Println("[CONTEXT] [ERROR] update failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CONTEXT", "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"context": doc})
	}
}

// RefreshWeather re-fetches current conditions for the user's stored
// location and persists them on the context document.
func RefreshWeather(contexts *store.UserContextStore, weather WeatherService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		doc, err := contexts.Fetch(ctx, userID)
		if err != nil {
			log.Println("[CONTEXT] [ERROR] fetch failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CONTEXT", "db error")
			return
		}
		if doc == nil || doc.Location == nil || doc.Location.Latitude == nil || doc.Location.Longitude == nil {
			respondWithError(c, http.StatusBadRequest, "CONTEXT", "no stored location to refresh weather for")
			return
		}

		current, err := weather.Current(ctx, *doc.Location.Latitude, *doc.Location.Longitude)
		if err != nil {
			log.Println("[CONTEXT] [ERROR] weather fetch failed:", err)
			respondWithError(c, http.StatusBadGateway, "CONTEXT", "weather service unavailable")
			return
		}

		updated, err := contexts.UpdateLocationAndWeather(ctx, userID, models.Profile{}, nil, current)
		if err != nil {
			log.Println("[CONTEXT] [ERROR] update failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CONTEXT", "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"weather": updated.Weather, "context": updated})
	}
}
