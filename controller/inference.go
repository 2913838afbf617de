package controller

import (
	"net/http"

	"gatewaychat/service"

	"github.com/gin-gonic/gin"
)

// InferenceController relays model listing and chat completions to the
// upstream gateway using the caller's own API key.
type InferenceController struct {
	models      *service.ModelService
	completions *service.CompletionService
}

func NewInferenceController(models *service.ModelService, completions *service.CompletionService) *InferenceController {
	return &InferenceController{models: models, completions: completions}
}

func (ctrl *InferenceController) Models(c *gin.Context) {
	list, err := ctrl.models.List(c.Request.Context(), c.GetString(apiKeyContextKey), c.DefaultQuery("type", "all"))
	if err != nil {
		respondError(c, err, "Failed to fetch models")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (ctrl *InferenceController) Completions(c *gin.Context) {
	var input struct {
		Model           string `json:"model"`
		Prompt          string `json:"prompt"`
		ChatID          string `json:"chatId"`
		Stream          bool   `json:"stream"`
		SaveChatHistory *bool  `json:"saveChatHistory"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	in := service.CompletionInput{
		Model:   input.Model,
		Prompt:  input.Prompt,
		ChatID:  input.ChatID,
		Stream:  input.Stream,
		Persist: input.SaveChatHistory == nil || *input.SaveChatHistory,
	}
	apiKey := c.GetString(apiKeyContextKey)

	if !in.Stream {
		res, err := ctrl.completions.Complete(c.Request.Context(), apiKey, in, nil)
		if err != nil {
			respondError(c, err, "Failed to get completion")
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	streaming := false
	res, err := ctrl.completions.Complete(c.Request.Context(), apiKey, in, func(delta string) error {
		if !streaming {
			streaming = true
			c.Writer.Header().Set("Content-Type", "text/event-stream")
			c.Writer.Header().Set("Cache-Control", "no-cache")
			c.Writer.Header().Set("Connection", "keep-alive")
		}
		c.SSEvent("message", delta)
		c.Writer.Flush()
		return c.Request.Context().Err()
	})
	if err != nil {
		if !streaming {
			respondError(c, err, "Failed to get completion")
			return
		}
		logger.Warnf("[%s] stream error, %s", c.GetString("requestId"), err)
		c.SSEvent("error", gin.H{"error": "Failed to get completion"})
		c.Writer.Flush()
		return
	}
	c.SSEvent("done", res)
	c.Writer.Flush()
}
