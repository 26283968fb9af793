package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/xralks/Bancodealimentos/pkg/errors"
)

func TestCacheRepositoryWithoutRedis(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "feed:u1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "feed:u1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "feed:u1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "feed:*"))
	assert.NoError(t, repo.Close())
}
