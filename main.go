package main

import (
	"fmt"
	"time"

	"gatewaychat/controller"
	"gatewaychat/model"
	"gatewaychat/platform"
	"gatewaychat/service"

	_uuid "github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CORSMiddleware ...
// CORS (Cross-Origin Resource Sharing)
func CORSMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "X-Requested-With, Content-Type, Origin, Authorization, Accept, Accept-Encoding")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, X-Request-Id")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
		} else {
			c.Next()
		}
	}
}

// RequestIDMiddleware ...
// Generate a unique ID and attach it to each request for future reference or use
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		uuid := _uuid.New()
		c.Writer.Header().Set("X-Request-Id", uuid.String())
		c.Set("requestId", uuid.String())
		c.Next()
	}
}

func LogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery
		if raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		latency := time.Since(start)

		logrus.Infof(
			" [%s] %d | %v | %s | %s | %s | %s ",
			c.GetString("requestId"),
			c.Writer.Status(),
			latency,
			c.ClientIP(),
			c.Request.Method,
			path,
			c.Request.UserAgent(),
		)
	}
}

func main() {
	fmt.Println("Server started...")

	//Load the .env file
	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("failed to load the env file")
	}
	config := platform.LoadConfig()

	if err := platform.InitAppLogger(config.LogPath, "gateway"); err != nil {
		fmt.Printf("failed to init log files: %s\n", err)
	}
	platform.SetLevel(config.LogLevel)
	logger := platform.Logger

	//init database
	platform.InitDB(config.DB)
	if err := model.InstallDB(platform.DB); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	platform.InitLLMClient(config.LLMBaseURL)

	credentials := service.NewCredentialService(platform.DB, platform.NewCache(config.CredentialTTL))
	chats := service.NewChatService(platform.DB, credentials)
	services := controller.Services{
		DB:          platform.DB,
		Credentials: credentials,
		Chats:       chats,
		Automation:  service.NewAutomationService(platform.DB),
		Models:      service.NewModelService(platform.LLMClient, config.AllowedModelTypes),
		Completions: service.NewCompletionService(platform.LLMClient, chats, credentials),
	}

	r := gin.Default()
	r.Use(CORSMiddleware(config.CORSOrigin))
	r.Use(RequestIDMiddleware())
	r.Use(LogMiddleware())
	controller.RegisterRoutes(r, services)

	c := cron.New()
	retention := service.NewRetentionTask(chats, config.RetentionDays)
	if _, scheduled, err := retention.Schedule(c, config.RetentionCron); err != nil {
		logger.Fatalf("Invalid RETENTION_CRON %q: %v", config.RetentionCron, err)
	} else if scheduled {
		logger.Infof("Chat retention enabled: archiving chats idle for %d days (%s)", config.RetentionDays, config.RetentionCron)
	}
	c.Start()
	defer c.Stop()

	if err := r.Run(":" + config.Port); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
