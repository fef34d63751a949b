package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the migration backend.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Remote   RemoteConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenLifetime time.Duration

	// External session provider (OAuth2 token endpoint)
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type RemoteConfig struct {
	DriveBaseURL  string
	PhotosBaseURL string
	// Requests per second against each remote API, per client
	RateLimit float64
	// Transient-failure retry policy
	MaxAttempts int
	RetryDelay  time.Duration
}

type QueueConfig struct {
	// Page size used when enumerating remote folders
	ListPageSize int
	// Bound on discovery recursion depth; the domain is a tree but the
	// walk tolerates cycles and runaway nesting
	MaxFolderDepth int
}

// Load reads configuration from .env, config.yaml and environment variables.
// Environment variables win (e.g. PHOTOSYNC_DATABASE_HOST).
func Load() *Config {
	// .env is optional; used for local development
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env file")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PHOTOSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("[Config] No config.yaml found, using defaults and environment")
		} else {
			log.Fatalf("[Config] Failed to read config: %v", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetInt("server.port"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
			MaxConns: v.GetInt32("database.max_conns"),
		},
		Auth: AuthConfig{
			JWTSecret:     v.GetString("auth.jwt_secret"),
			JWTIssuer:     v.GetString("auth.jwt_issuer"),
			TokenLifetime: v.GetDuration("auth.token_lifetime"),
			ClientID:      v.GetString("auth.client_id"),
			ClientSecret:  v.GetString("auth.client_secret"),
			TokenURL:      v.GetString("auth.token_url"),
		},
		Remote: RemoteConfig{
			DriveBaseURL:  v.GetString("remote.drive_base_url"),
			PhotosBaseURL: v.GetString("remote.photos_base_url"),
			RateLimit:     v.GetFloat64("remote.rate_limit"),
			MaxAttempts:   v.GetInt("remote.max_attempts"),
			RetryDelay:    v.GetDuration("remote.retry_delay"),
		},
		Queue: QueueConfig{
			ListPageSize:   v.GetInt("queue.list_page_size"),
			MaxFolderDepth: v.GetInt("queue.max_folder_depth"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "photosync")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "photosync")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("auth.jwt_issuer", "photosync-backend")
	v.SetDefault("auth.token_lifetime", 24*time.Hour)
	v.SetDefault("auth.token_url", "https://oauth2.googleapis.com/token")

	v.SetDefault("remote.drive_base_url", "https://www.googleapis.com/drive/v3")
	v.SetDefault("remote.photos_base_url", "https://photoslibrary.googleapis.com/v1")
	v.SetDefault("remote.rate_limit", 5.0)
	v.SetDefault("remote.max_attempts", 3)
	v.SetDefault("remote.retry_delay", 500*time.Millisecond)

	v.SetDefault("queue.list_page_size", 200)
	v.SetDefault("queue.max_folder_depth", 20)
}
