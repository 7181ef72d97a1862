package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type Config struct {
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Empty allows any origin for CORS and WebSocket handshakes.
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"firestore"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	SeedFile    string `envconfig:"SEED_FILE"`

	FirebaseProject            string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseServiceAccountPath string `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	AuthProvider string `envconfig:"AUTH_PROVIDER" default:"firebase"`
	JWTSecret    string `envconfig:"JWT_SECRET"`
	JWTIssuer    string `envconfig:"JWT_ISSUER"`
	JWKSURL      string `envconfig:"JWKS_URL"`

	RedisAddr       string        `envconfig:"REDIS_ADDR"`
	ProfileCacheTTL time.Duration `envconfig:"PROFILE_CACHE_TTL" default:"10m"`

	SendMessageRatePerMinute      int `envconfig:"SEND_MESSAGE_RATE_PER_MINUTE" default:"30"`
	CreateConversationRatePerHour int `envconfig:"CREATE_CONVERSATION_RATE_PER_HOUR" default:"20"`
	RequestRatePerMinute          int `envconfig:"REQUEST_RATE_PER_MINUTE" default:"300"`
	MessageMaxLength              int `envconfig:"MESSAGE_MAX_LENGTH" default:"5000"`
}

func Load() (*Config, error) {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for firebase auth")
		}
	case AuthJWT:
		if c.JWTSecret == "" && c.JWKSURL == "" {
			return fmt.Errorf("JWT_SECRET or JWKS_URL is required for jwt auth")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.SendMessageRatePerMinute <= 0 || c.CreateConversationRatePerHour <= 0 || c.RequestRatePerMinute <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.MessageMaxLength <= 0 {
		return fmt.Errorf("MESSAGE_MAX_LENGTH must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
