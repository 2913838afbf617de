package lib

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAPIKey(t *testing.T) {
	a := HashAPIKey("sk-test-1")
	assert.Equal(t, a, HashAPIKey("sk-test-1"))
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, HashAPIKey("sk-test-2"))

	// empty input still hashes
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashAPIKey(""))
}

func TestResolveUserID(t *testing.T) {
	ctx := context.Background()
	known := HashAPIKey("known")

	lookup := func(_ context.Context, hash string) (*UserRef, error) {
		if hash == known {
			return &UserRef{ID: 42}, nil
		}
		return nil, nil
	}

	id, found, err := ResolveUserID(ctx, "known", lookup)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, uint(42), id)

	id, found, err = ResolveUserID(ctx, "unknown", lookup)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, id)
}

func TestResolveUserIDLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, found, err := ResolveUserID(context.Background(), "k", func(context.Context, string) (*UserRef, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, found)
}
