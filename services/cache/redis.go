// Package cachesvc keeps users in redis so authenticated requests skip the database.
package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/teleapo/core"
	"github.com/trezcool/teleapo/core/user"
)

const (
	keyPrefix  = "teleapo:user:"
	defaultTTL = 5 * time.Minute
)

// cachedUser carries every user column, the Google tokens included.
type cachedUser struct {
	ID                 int         `json:"id"`
	OpenID             string      `json:"openId"`
	Name               null.String `json:"name"`
	Email              null.String `json:"email"`
	LoginMethod        null.String `json:"loginMethod"`
	Role               string      `json:"role"`
	GoogleAccessToken  null.String `json:"googleAccessToken"`
	GoogleRefreshToken null.String `json:"googleRefreshToken"`
	GoogleCalendarID   null.String `json:"googleCalendarId"`
	CreatedAt          time.Time   `json:"createdAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
	LastSignedIn       time.Time   `json:"lastSignedIn"`
}

type userCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ user.Cache = (*userCache)(nil) // interface compliance check

// NewClient connects to redis and checks the connection.
func NewClient(ctx context.Context, conf *core.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return rdb, nil
}

func NewUserCache(rdb *redis.Client, ttl time.Duration) *userCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &userCache{rdb: rdb, ttl: ttl}
}

func key(openID string) string {
	return keyPrefix + openID
}

func (c *userCache) Get(ctx context.Context, openID string) (user.User, bool, error) {
	data, err := c.rdb.Get(ctx, key(openID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return user.User{}, false, nil
		}
		return user.User{}, false, errors.Wrap(err, "reading cached user")
	}

	var cu cachedUser
	if err := json.Unmarshal(data, &cu); err != nil {
		return user.User{}, false, errors.Wrap(err, "decoding cached user")
	}
	return user.User(cu), true, nil
}

func (c *userCache) Set(ctx context.Context, usr user.User) error {
	data, err := json.Marshal(cachedUser(usr))
	if err != nil {
		return errors.Wrap(err, "encoding user")
	}
	return errors.Wrap(c.rdb.Set(ctx, key(usr.OpenID), data, c.ttl).Err(), "caching user")
}

func (c *userCache) Delete(ctx context.Context, openID string) error {
	return errors.Wrap(c.rdb.Del(ctx, key(openID)).Err(), "deleting cached user")
}
