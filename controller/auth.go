package controller

import (
	"errors"
	"net/http"

	"gatewaychat/platform"
	"gatewaychat/service"

	"github.com/gin-gonic/gin"
)

var logger = platform.Logger

const apiKeyContextKey = "apiKey"

// AuthController gates routes on the Authorization header. The header holds
// the raw API key; resolving it to a user is left to each handler so body
// validation still answers 400 before an unknown key answers 401.
type AuthController struct {
	credentials *service.CredentialService
}

func NewAuthController(credentials *service.CredentialService) *AuthController {
	return &AuthController{credentials: credentials}
}

// RequireAPIKey aborts with 401 when no Authorization header is present.
func (a *AuthController) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := service.ExtractAPIKey(c.Request)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			return
		}
		c.Set(apiKeyContextKey, apiKey)
		c.Next()
	}
}

// Verify reports whether the presented key belongs to a known user.
func (a *AuthController) Verify(c *gin.Context) {
	if _, ok := a.userID(c); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// userID resolves the request's key. On failure it has already written the
// response and returns false.
func (a *AuthController) userID(c *gin.Context) (uint, bool) {
	userID, err := a.credentials.Resolve(c.Request.Context(), c.GetString(apiKeyContextKey))
	if err != nil {
		respondError(c, err, "Failed to verify API Key")
		return 0, false
	}
	return userID, true
}

// respondError maps service errors onto HTTP statuses. Unexpected errors are
// logged in full and answered with the generic fallback message only.
func respondError(c *gin.Context, err error, fallback string) {
	var validation *service.ValidationError
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
	case errors.Is(err, service.ErrInvalidCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key"})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Chat not found or access denied"})
	case errors.Is(err, service.ErrUpstream):
		logger.Warnf("[%s] %s: %s", c.GetString("requestId"), fallback, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fallback})
	default:
		logger.Errorf("[%s] %s: %s", c.GetString("requestId"), fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
