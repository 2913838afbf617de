// Package lib holds the API key hashing and credential resolution helpers
// used by the credential service.
package lib

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// HashAPIKey returns the hex SHA-256 digest of a raw API key. The digest is
// unsalted so it can be used as the users.api_key_hash lookup key.
func HashAPIKey(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}

// UserRef is the minimal projection a lookup needs to return.
type UserRef struct {
	ID uint
}

// LookupFunc finds the user owning a key hash. It returns nil, nil when no
// user matches.
type LookupFunc func(ctx context.Context, hash string) (*UserRef, error)

// ResolveUserID hashes apiKey and asks lookup for the owner. found is false
// when no user matches; err is only set when the lookup itself failed.
func ResolveUserID(ctx context.Context, apiKey string, lookup LookupFunc) (userID uint, found bool, err error) {
	user, err := lookup(ctx, HashAPIKey(apiKey))
	if err != nil {
		return 0, false, err
	}
	if user == nil {
		return 0, false, nil
	}
	return user.ID, true, nil
}
