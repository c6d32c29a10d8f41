package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Storage  StorageConfig
	App      AppConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig controls the session provider and the distinguished
// administrator account.
type AuthConfig struct {
	Provider         string // "local" or "firebase"
	JWTSecret        string
	TokenTTL         time.Duration
	AdminEmail       string
	AdminName        string
	CredentialsPath  string // Firebase service account, only for Provider=firebase
	SignInRatePerMin int
	SignInBurst      int
	RefreshEverySecs int
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Provider:         getEnv("AUTH_PROVIDER", "local"),
			JWTSecret:        getEnv("JWT_SECRET", ""),
			TokenTTL:         time.Duration(getEnvAsInt("TOKEN_TTL_MINUTES", 60*24)) * time.Minute,
			AdminEmail:       getEnv("ADMIN_EMAIL", "admin@showfolio.dev"),
			AdminName:        getEnv("ADMIN_NAME", "Administrator"),
			CredentialsPath:  getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			SignInRatePerMin: getEnvAsInt("SIGNIN_RATE_PER_MIN", 10),
			SignInBurst:      getEnvAsInt("SIGNIN_BURST", 5),
			RefreshEverySecs: getEnvAsInt("PROJECT_REFRESH_SECONDS", 300),
		},
		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:     getEnv("STORAGE_SECRET_KEY", ""),
			Bucket:        getEnv("STORAGE_BUCKET", "showfolio-images"),
			UseSSL:        getEnv("STORAGE_USE_SSL", "false") == "true",
			PublicBaseURL: getEnv("STORAGE_PUBLIC_BASE_URL", ""),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Auth.AdminEmail == "" {
		return fmt.Errorf("ADMIN_EMAIL is required")
	}

	if c.Auth.Provider == "local" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required for the local auth provider")
	}

	if c.Auth.Provider == "firebase" && c.Auth.CredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for the firebase auth provider")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}
