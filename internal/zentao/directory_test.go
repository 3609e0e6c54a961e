package zentao

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheTTL(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(time.Minute)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	_, ok := cache.Get(ctx)
	assert.False(t, ok)

	cache.Put(ctx, NewDirectory([]User{{ID: 1, Account: "admin"}}))
	dir, ok := cache.Get(ctx)
	require.True(t, ok)
	u, found := dir.ByAccount("admin")
	require.True(t, found)
	assert.Equal(t, 1, u.ID)

	clock = clock.Add(2 * time.Minute)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}

func TestMemoryCacheProcessLifetime(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryCache(0)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	cache.Put(ctx, NewDirectory(nil))
	clock = clock.Add(365 * 24 * time.Hour)
	_, ok := cache.Get(ctx)
	assert.True(t, ok)

	cache.Invalidate(ctx)
	_, ok = cache.Get(ctx)
	assert.False(t, ok)
}

func TestRedisCacheRejectsBadURL(t *testing.T) {
	_, err := NewRedisCache("not a url", "x", 0)
	assert.Error(t, err)

	cache, err := NewRedisCache("redis://127.0.0.1:6379/0", "http://zentao.local", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "zentao:users:http://zentao.local", cache.key)
	require.NoError(t, cache.Close())
}

func TestUserRefShapes(t *testing.T) {
	dir := NewDirectory([]User{{ID: 2, Account: "zhangsan", Realname: "张三"}})

	tests := []struct {
		raw      string
		wantNil  bool
		wantAcct string
	}{
		{`2`, false, "zhangsan"},
		{`"2"`, false, "zhangsan"},
		{`"zhangsan"`, false, "zhangsan"},
		{`{"id": 2, "account": "zhangsan"}`, false, "zhangsan"},
		{`{"id": 7, "account": "guest", "realname": "访客"}`, false, "guest"},
		{`"outsider"`, false, "outsider"},
		{`77`, true, ""},
		{`""`, true, ""},
		{`null`, true, ""},
		{`0`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var ref userRef
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &ref))
			u := ref.resolve(dir)
			if tt.wantNil {
				assert.Nil(t, u)
				return
			}
			require.NotNil(t, u)
			assert.Equal(t, tt.wantAcct, u.Account)
		})
	}
}

func TestResolvedUserIsACopy(t *testing.T) {
	dir := NewDirectory([]User{{ID: 2, Account: "zhangsan"}})
	ref := userRef{present: true, id: 2}
	u := ref.resolve(dir)
	u.Account = "changed"
	again, _ := dir.ByID(2)
	assert.Equal(t, "zhangsan", again.Account)
}
