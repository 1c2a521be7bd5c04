package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/chat"
	"backend/internal/identity"
	"backend/internal/models"
	"backend/internal/store"
)

type chatRequest struct {
	Query    string `json:"query" binding:"required"`
	UserID   string `json:"userId"`
	FarmerID string `json:"farmerId"`
	Language string `json:"language"`
}

// Chat runs one AI chat turn. Identity comes from the body when present,
// otherwise from the session; anonymous requests without either get 400.
func Chat(orchestrator *chat.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		if req.UserID == "" {
			if value, ok := c.Get("user"); ok {
				req.UserID = value.(*models.User).ID.Hex()
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
		defer cancel()

		reply, err := orchestrator.Respond(ctx, chat.Request{
			UserID:   req.UserID,
			FarmerID: req.FarmerID,
			Query:    req.Query,
			Language: req.Language,
		})
		if err == chat.ErrUnresolvableIdentity {
			respondWithError(c, http.StatusBadRequest, "CHAT", "userId or farmerId is required")
			return
		}
		if err != nil {
			log.Println("[CHAT] [ERROR] chat turn failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CHAT", "chat failed")
			return
		}

		c.JSON(http.StatusOK, reply)
	}
}

// GetMemory returns the tail of the session user's long-term memory. The
// limit query parameter caps the slice; zero or absent falls back to the
// store default.
func GetMemory(memories *store.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet("user").(*models.User)

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				respondWithError(c, http.StatusBadRequest, "CHAT", "limit must be a non-negative integer")
				return
			}
			limit = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		key := identity.NormalizeKey(user.ID.Hex(), user.Phone)
		entries, err := memories.GetEntries(ctx, key, limit)
		if err != nil {
			log.Println("[CHAT] [ERROR] memory fetch failed:", err)
			respondWithError(c, http.StatusInternalServerError, "CHAT", "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"memories": entries, "count": len(entries)})
	}
}
