package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gatewaychat/lib"
	"gatewaychat/model"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// ExtractAPIKey returns the raw Authorization header value. The header carries
// the API key itself, not a signed token, so it is hashed exactly as sent.
func ExtractAPIKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("Authorization"))
}

// CredentialService maps API keys to user ids. Resolved ids are cached by
// key hash; users are never deleted, so a cached id cannot go stale.
type CredentialService struct {
	db    *gorm.DB
	cache *cache.Cache
	now   func() time.Time
}

func NewCredentialService(db *gorm.DB, c *cache.Cache) *CredentialService {
	return &CredentialService{db: db, cache: c, now: time.Now}
}

func (s *CredentialService) lookup(ctx context.Context, hash string) (*lib.UserRef, error) {
	if s.cache != nil {
		if id, ok := s.cache.Get(hash); ok {
			return &lib.UserRef{ID: id.(uint)}, nil
		}
	}
	user, err := model.GetUserByHash(ctx, s.db, hash)
	if err != nil || user == nil {
		return nil, err
	}
	s.remember(hash, user.ID)
	return &lib.UserRef{ID: user.ID}, nil
}

func (s *CredentialService) remember(hash string, userID uint) {
	if s.cache != nil {
		s.cache.SetDefault(hash, userID)
	}
}

// Resolve returns the id of the user owning apiKey.
func (s *CredentialService) Resolve(ctx context.Context, apiKey string) (uint, error) {
	if apiKey == "" {
		return 0, ErrMissingCredential
	}
	userID, found, err := lib.ResolveUserID(ctx, apiKey, s.lookup)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrInvalidCredential
	}
	return userID, nil
}

// EnsureUser resolves apiKey, creating the user on first use, and records the
// activity time.
func (s *CredentialService) EnsureUser(ctx context.Context, apiKey string) (uint, error) {
	if apiKey == "" {
		return 0, ErrMissingCredential
	}
	hash := lib.HashAPIKey(apiKey)
	user, err := model.UpsertUserByHash(ctx, s.db, hash, s.now())
	if err != nil {
		return 0, err
	}
	s.remember(hash, user.ID)
	return user.ID, nil
}

