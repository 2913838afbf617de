package controller

import (
	"net/http"

	"gatewaychat/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Services bundles what the HTTP layer needs.
type Services struct {
	DB          *gorm.DB
	Credentials *service.CredentialService
	Chats       *service.ChatService
	Automation  *service.AutomationService
	Models      *service.ModelService
	Completions *service.CompletionService
}

// RegisterRoutes wires every gateway endpoint onto r.
func RegisterRoutes(r *gin.Engine, s Services) {
	auth := NewAuthController(s.Credentials)
	chat := NewChatController(auth, s.Chats)
	automation := NewAutomationController(auth, s.Automation)
	inference := NewInferenceController(s.Models, s.Completions)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			logger.Errorf("health check failed: %s", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", auth.RequireAPIKey())
	{
		v1.GET("/auth/verify", auth.Verify)

		v1.POST("/chat/save", chat.Save)
		v1.GET("/chat/history", chat.History)
		v1.POST("/chat/load", chat.Load)
		v1.POST("/chat/delete", chat.Delete)
		v1.POST("/chat/archive", chat.Archive)
		v1.GET("/chat/export", chat.Export)

		v1.GET("/automation/settings", automation.Get)
		v1.PUT("/automation/settings", automation.Put)

		v1.GET("/models", inference.Models)
		v1.POST("/chat/completions", inference.Completions)
	}
}
