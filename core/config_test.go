package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_EnvAliases(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("JWT_SECRET", "prod-secret")
	t.Setenv("OAUTH_SERVER_URL", "https://auth.example.test")
	t.Setenv("OWNER_OPEN_ID", "owner-1")
	t.Setenv("DATABASE_ENGINE", "memory")
	t.Setenv("STATIC_DIR", "/srv/public")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")

	conf := NewConfig()
	assert.Equal(t, "PROD", conf.Env)
	assert.False(t, conf.Debug)
	assert.Equal(t, "prod-secret", conf.Session.Secret)
	assert.Equal(t, "https://auth.example.test", conf.OAuth.ServerURL)
	assert.Equal(t, "owner-1", conf.OwnerOpenID)
	assert.Equal(t, "memory", conf.Database.Engine)
	assert.Equal(t, "/srv/public", conf.Server.StaticDir)
	assert.Equal(t, "client-id", conf.Google.ClientID)
}

func TestNewConfig_PrefixedWinsOverAlias(t *testing.T) {
	t.Setenv("ENV", "dev")
	t.Setenv("OAUTH_SERVER_URL", "https://alias.example.test")
	t.Setenv("DEV_OAUTH_SERVERURL", "https://prefixed.example.test")
	t.Setenv("DEV_OWNEROPENID", "owner-2")

	conf := NewConfig()
	assert.Equal(t, "https://prefixed.example.test", conf.OAuth.ServerURL)
	assert.Equal(t, "owner-2", conf.OwnerOpenID)
	assert.Equal(t, "postgres", conf.Database.Engine)
}
