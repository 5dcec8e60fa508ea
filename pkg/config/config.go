package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres  = "postgres"
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type Config struct {
	ServerPort  string
	Environment string

	StoreDriver  string
	DatabaseURL  string
	DBMaxConns   int32
	DBTimeout    time.Duration
	EnsureSchema bool

	FirebaseProject            string
	FirebaseServiceAccountPath string
	FirebaseServiceAccountJSON string

	AuthProvider string
	JWTSecret    string
	JWTExpiry    int64

	RedisURL     string
	RedisChannel string

	PollInterval         time.Duration
	MessageRatePerMinute int
	MessageRateBurst     int
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	config := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		StoreDriver:  strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DBMaxConns:   int32(getEnvAsInt64("DB_MAX_CONNS", 10)),
		DBTimeout:    getEnvAsDuration("DB_TIMEOUT", 5*time.Second),
		EnsureSchema: getEnvAsBool("DB_ENSURE_SCHEMA", true),

		FirebaseProject:            getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),

		AuthProvider: strings.ToLower(getEnv("AUTH_PROVIDER", AuthProviderJWT)),
		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:    getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours

		RedisURL:     getEnv("REDIS_URL", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "vendorchat:events"),

		PollInterval:         getEnvAsDuration("POLL_INTERVAL", 30*time.Second),
		MessageRatePerMinute: int(getEnvAsInt64("MESSAGE_RATE_PER_MINUTE", 30)),
		MessageRateBurst:     int(getEnvAsInt64("MESSAGE_RATE_BURST", 10)),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the %s store", c.StoreDriver)
		}
	case StoreDriverFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the %s store", c.StoreDriver)
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for the %s auth provider", c.AuthProvider)
		}
	case AuthProviderFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the %s auth provider", c.AuthProvider)
		}
	default:
		return fmt.Errorf("config: unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.MessageRatePerMinute <= 0 || c.MessageRateBurst <= 0 {
		return fmt.Errorf("config: message rate limits must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
