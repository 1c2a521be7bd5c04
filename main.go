package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"backend/internal/chat"
	"backend/internal/clients"
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handlers"
	"backend/internal/middleware"
	"backend/internal/store"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Println("⚠️ user index warning:", err)
	}
	if err := database.EnsureSessionIndexes(db); err != nil {
		log.Println("⚠️ session index warning:", err)
	}
	if err := database.EnsureOtpIndexes(db); err != nil {
		log.Println("⚠️ otp index warning:", err)
	}
	if err := database.EnsureContextIndexes(db); err != nil {
		log.Println("⚠️ context index warning:", err)
	}
	if err := database.EnsureMemoryIndexes(db); err != nil {
		log.Println("⚠️ memory index warning:", err)
	}

	users := store.NewUserStore(store.Wrap(db.Collection("users")))
	sessions := store.NewSessionStore(
		store.Wrap(db.Collection("sessions")),
		store.Wrap(db.Collection("users")),
		config.AppEnv.SessionTTL,
	)
	otps := store.NewOtpStore(
		store.Wrap(db.Collection("otp_codes")),
		config.AppEnv.OtpTTL,
		config.AppEnv.OtpMaxAttempts,
	)
	contexts := store.NewUserContextStore(
		store.Wrap(db.Collection("user_context")),
		config.AppEnv.ChatWindowSize,
	)
	memories := store.NewMemoryStore(
		store.Wrap(db.Collection("user_memories")),
		config.AppEnv.MemoryLimit,
		config.AppEnv.MemorySlice,
	)

	mailer := clients.NewMailClient(
		config.AppEnv.SendgridBaseURL,
		config.AppEnv.SendgridAPIKey,
		config.AppEnv.SendgridFrom,
	)
	weather := clients.NewWeatherClient(config.AppEnv.WeatherBaseURL)
	completer := clients.NewCompletionClient(
		config.AppEnv.MistralBaseURL,
		config.AppEnv.MistralAPIKey,
		config.AppEnv.MistralModel,
	)

	orchestrator := chat.NewOrchestrator(users, contexts, memories, completer, config.AppEnv.MemorySlice)

	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "db": db.Name()})
	})

	r.POST("/auth/send-otp", handlers.SendOtp(otps, mailer))
	r.POST("/auth/verify-otp", handlers.VerifyOtp(users, otps, sessions, contexts))
	r.POST("/auth/logout", handlers.Logout(sessions))
	r.GET("/auth/me", middleware.SessionAuth(sessions), handlers.GetMe())

	user := r.Group("/user")
	user.Use(middleware.SessionAuth(sessions))
	{
		user.GET("/context", handlers.GetUserContext(contexts))
		user.PUT("/context", handlers.UpdateUserContext(contexts))
		user.POST("/context/weather/refresh", handlers.RefreshWeather(contexts, weather))
		user.GET("/memory", handlers.GetMemory(memories))
	}

	ai := r.Group("/ai")
	ai.Use(middleware.SessionAuthOptional(sessions))
	{
		ai.POST("/chat", handlers.Chat(orchestrator))
	}

	r.Run(":" + config.AppEnv.Port)
}
