package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUTH_PROVIDER", "jwt")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, 30, cfg.SendMessageRatePerMinute)
	assert.Equal(t, 20, cfg.CreateConversationRatePerHour)
	assert.Equal(t, 300, cfg.RequestRatePerMinute)
	assert.Equal(t, 5000, cfg.MessageMaxLength)
	assert.Equal(t, 10*time.Minute, cfg.ProfileCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			StoreDriver:                   StoreMemory,
			AuthProvider:                  AuthJWT,
			JWTSecret:                     "secret",
			SendMessageRatePerMinute:      1,
			CreateConversationRatePerHour: 1,
			RequestRatePerMinute:          1,
			MessageMaxLength:              10,
		}
	}

	cases := map[string]func(c *Config){
		"postgres without dsn":   func(c *Config) { c.StoreDriver = StorePostgres },
		"firestore without proj": func(c *Config) { c.StoreDriver = StoreFirestore },
		"unknown store":          func(c *Config) { c.StoreDriver = "mongo" },
		"jwt without keys":       func(c *Config) { c.JWTSecret = "" },
		"unknown auth":           func(c *Config) { c.AuthProvider = "saml" },
		"zero rate":              func(c *Config) { c.SendMessageRatePerMinute = 0 },
		"zero max length":        func(c *Config) { c.MessageMaxLength = 0 },
	}

	base := valid()
	require.NoError(t, base.Validate())

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	t.Run("jwks only", func(t *testing.T) {
		c := valid()
		c.JWTSecret = ""
		c.JWKSURL = "https://auth.example.com/.well-known/jwks.json"
		assert.NoError(t, c.Validate())
	})
}
