package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. It is
// loaded once at startup and passed explicitly into constructors; nothing
// below this layer reads the process environment.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	StatsCacheTTL          time.Duration
	AIProvider             string
	GeminiAPIKey           string
	GeminiCandidates       []string
	OpenAIAPIKey           string
	OpenAIModel            string
	BatchSpacing           time.Duration
	DocFetchTimeout        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PAPERGRADE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "PaperGrade API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "papergrade/sheets")
	v.SetDefault("stats.cache_ttl", "5m")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("batch.spacing_ms", 1000)
	v.SetDefault("docfetch.timeout_ms", 30000)

	ttlString := v.GetString("stats.cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid stats cache ttl: %w", err)
	}

	spacingMs := v.GetInt("batch.spacing_ms")
	if spacingMs <= 0 {
		spacingMs = 1000
	}

	fetchTimeoutMs := v.GetInt("docfetch.timeout_ms")
	if fetchTimeoutMs <= 0 {
		fetchTimeoutMs = 30000
	}

	var candidates []string
	for _, candidate := range strings.Split(v.GetString("gemini.candidates"), ",") {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		StatsCacheTTL:          ttl,
		AIProvider:             strings.ToLower(v.GetString("ai.provider")),
		GeminiAPIKey:           v.GetString("gemini.api_key"),
		GeminiCandidates:       candidates,
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		OpenAIModel:            v.GetString("openai_model"),
		BatchSpacing:           time.Duration(spacingMs) * time.Millisecond,
		DocFetchTimeout:        time.Duration(fetchTimeoutMs) * time.Millisecond,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}
