package controller

import (
	"net/http"

	"gatewaychat/service"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	*AuthController
	chats *service.ChatService
}

func NewChatController(auth *AuthController, chats *service.ChatService) *ChatController {
	return &ChatController{AuthController: auth, chats: chats}
}

type chatIDRequest struct {
	ChatID string `json:"chatId"`
}

func (ch *ChatController) Save(c *gin.Context) {
	var input struct {
		ChatID           string `json:"chatId"`
		Title            string `json:"title"`
		UserMessage      string `json:"userMessage"`
		AssistantMessage string `json:"assistantMessage"`
		SaveChatHistory  *bool  `json:"saveChatHistory"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logger.Warnf("[%s] Invalid input, %s", c.GetString("requestId"), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	persist := input.SaveChatHistory == nil || *input.SaveChatHistory
	res, err := ch.chats.SaveWithKey(c.Request.Context(), c.GetString(apiKeyContextKey), service.SaveInput{
		ChatID:           input.ChatID,
		Title:            input.Title,
		UserMessage:      input.UserMessage,
		AssistantMessage: input.AssistantMessage,
		Persist:          persist,
	})
	if err != nil {
		respondError(c, err, "Failed to save chat")
		return
	}

	if !res.Saved {
		c.JSON(http.StatusOK, gin.H{"success": true, "saved": false})
		return
	}
	logger.Infof("[%s] Saved turn to chat %s", c.GetString("requestId"), res.ChatID)
	c.JSON(http.StatusOK, gin.H{"success": true, "saved": true, "chatId": res.ChatID})
}

func (ch *ChatController) History(c *gin.Context) {
	userID, ok := ch.userID(c)
	if !ok {
		return
	}
	chats, err := ch.chats.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch chat history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// bindChatID reads {chatId} and answers 400 when it is absent.
func bindChatID(c *gin.Context) (string, bool) {
	var input chatIDRequest
	if err := c.ShouldBindJSON(&input); err != nil || input.ChatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID is required"})
		return "", false
	}
	return input.ChatID, true
}

func (ch *ChatController) Load(c *gin.Context) {
	chatID, ok := bindChatID(c)
	if !ok {
		return
	}
	userID, ok := ch.userID(c)
	if !ok {
		return
	}
	transcript, err := ch.chats.Load(c.Request.Context(), userID, chatID)
	if err != nil {
		respondError(c, err, "Failed to load chat")
		return
	}
	c.JSON(http.StatusOK, transcript)
}

func (ch *ChatController) Delete(c *gin.Context) {
	chatID, ok := bindChatID(c)
	if !ok {
		return
	}
	userID, ok := ch.userID(c)
	if !ok {
		return
	}
	if err := ch.chats.Delete(c.Request.Context(), userID, chatID); err != nil {
		respondError(c, err, "Failed to delete chat")
		return
	}
	logger.Infof("[%s] Deleted chat %s", c.GetString("requestId"), chatID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat deleted successfully"})
}

func (ch *ChatController) Archive(c *gin.Context) {
	chatID, ok := bindChatID(c)
	if !ok {
		return
	}
	userID, ok := ch.userID(c)
	if !ok {
		return
	}
	if err := ch.chats.Archive(c.Request.Context(), userID, chatID); err != nil {
		respondError(c, err, "Failed to archive chat")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Chat archived successfully"})
}

func (ch *ChatController) Export(c *gin.Context) {
	chatID := c.Query("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Chat ID is required"})
		return
	}
	userID, ok := ch.userID(c)
	if !ok {
		return
	}
	body, contentType, err := ch.chats.Export(c.Request.Context(), userID, chatID, c.Query("format"))
	if err != nil {
		respondError(c, err, "Failed to export chat")
		return
	}
	c.Data(http.StatusOK, contentType, body)
}
