package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds the application configuration.
type Config struct {
	AppPort    string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	JWTSecret  string
	RedisAddr  string
	RedisPass  string
	RedisDB    int

	QuoteAPIURL   string
	QuoteAPIKey   string
	QuoteTimeout  time.Duration
	QuoteCacheTTL time.Duration

	StartingCash decimal.Decimal

	IsProd bool
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// LoadConfig loads configuration from the environment, reading a .env
// file first if one is present.
func LoadConfig() *Config {
	_ = godotenv.Load()
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))

	// New accounts start with 10000 in cash unless overridden.
	startingCash := decimal.NewFromInt(10000)
	if v := os.Getenv("STARTING_CASH"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			startingCash = d
		}
	}

	return &Config{
		AppPort:       os.Getenv("APP_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPass:     os.Getenv("REDIS_PASS"),
		RedisDB:       redisDB,
		QuoteAPIURL:   os.Getenv("QUOTE_API_URL"),
		QuoteAPIKey:   os.Getenv("QUOTE_API_KEY"),
		QuoteTimeout:  envDuration("QUOTE_TIMEOUT", 5*time.Second),
		QuoteCacheTTL: envDuration("QUOTE_CACHE_TTL", 5*time.Minute),
		StartingCash:  startingCash,
		IsProd:        os.Getenv("IS_PROD") == "true",
	}
}
