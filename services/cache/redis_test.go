package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core/user"
	testutil "github.com/trezcool/teleapo/tests"
)

func newTestCache(t *testing.T) (*userCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conf := testutil.NewConfig()
	conf.Redis.Addr = mr.Addr()

	rdb, err := NewClient(context.Background(), conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewUserCache(rdb, time.Minute), mr
}

func TestUserCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	now := time.Now().UTC().Truncate(time.Second)
	usr := user.User{
		ID:                 7,
		OpenID:             "open-7",
		Name:               null.StringFrom("Jane"),
		Role:               user.RoleManager,
		GoogleAccessToken:  null.StringFrom("access"),
		GoogleRefreshToken: null.StringFrom("refresh"),
		GoogleCalendarID:   null.StringFrom("primary"),
		CreatedAt:          now,
		UpdatedAt:          now,
		LastSignedIn:       now,
	}

	_, ok, err := c.Get(ctx, usr.OpenID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, usr))
	assert.True(t, mr.Exists("teleapo:user:open-7"))
	assert.Equal(t, time.Minute, mr.TTL("teleapo:user:open-7"))

	got, ok, err := c.Get(ctx, usr.OpenID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, usr, got)
	assert.True(t, got.HasGoogleCalendar())

	require.NoError(t, c.Delete(ctx, usr.OpenID))
	_, ok, err = c.Get(ctx, usr.OpenID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, c.Set(ctx, user.User{ID: 1, OpenID: "open-1"}))

	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "open-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserCache_Corrupted(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("teleapo:user:open-1", "not json"))

	_, _, err := c.Get(ctx, "open-1")
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	conf := testutil.NewConfig()
	conf.Redis.Addr = "127.0.0.1:1"
	_, err := NewClient(context.Background(), conf)
	assert.Error(t, err)
}
