package controller

import (
	"net/http"

	"gatewaychat/service"

	"github.com/gin-gonic/gin"
)

type AutomationController struct {
	*AuthController
	automation *service.AutomationService
}

func NewAutomationController(auth *AuthController, automation *service.AutomationService) *AutomationController {
	return &AutomationController{AuthController: auth, automation: automation}
}

func (ctrl *AutomationController) Get(c *gin.Context) {
	userID, ok := ctrl.userID(c)
	if !ok {
		return
	}
	settings, err := ctrl.automation.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to load automation settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (ctrl *AutomationController) Put(c *gin.Context) {
	var input service.AutomationSettings
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	userID, ok := ctrl.userID(c)
	if !ok {
		return
	}
	settings, err := ctrl.automation.Put(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err, "Failed to save automation settings")
		return
	}
	logger.Infof("[%s] Automation settings updated: enabled=%t duration=%d", c.GetString("requestId"), settings.IsEnabled, settings.SessionDuration)
	c.JSON(http.StatusOK, settings)
}
