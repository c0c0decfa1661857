package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server     ServerConfig
	Redis      RedisConfig
	SQLite     SQLiteConfig
	Uploads    UploadsConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
	Analysis   AnalysisConfig
	OpenAI     OpenAIConfig
	Grok       GrokConfig
	OpenRouter OpenRouterConfig
	Ollama     OllamaConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type UploadsConfig struct {
	Dir       string
	MaxSizeMB int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	UploadPerHour int
}

// AnalysisConfig controls the analysis pipeline itself.
// DefaultProvider/DefaultLanguage apply only when no settings row exists;
// the active values are read from the settings table at enqueue time.
type AnalysisConfig struct {
	DefaultProvider string
	DefaultLanguage string
	TimeoutSeconds  int
	Concurrency     int
	LockTTLMinutes  int
	MaxRetry        int
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type GrokConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type OpenRouterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Referer string
	Title   string
}

type OllamaConfig struct {
	URL   string
	Model string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("OPENAI_API_KEY")
	readSecret("GROK_API_KEY")
	readSecret("OPENROUTER_API_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("sqlite.path", "SQLITE_PATH")
	_ = viper.BindEnv("uploads.dir", "UPLOADS_DIR")
	_ = viper.BindEnv("uploads.max_size_mb", "UPLOADS_MAX_SIZE_MB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("ratelimit.upload_per_hour", "UPLOAD_PER_HOUR")
	_ = viper.BindEnv("analysis.default_provider", "AI_PROVIDER")
	_ = viper.BindEnv("analysis.default_language", "AI_LANGUAGE")
	_ = viper.BindEnv("analysis.timeout_seconds", "ANALYSIS_TIMEOUT")
	_ = viper.BindEnv("analysis.concurrency", "ANALYSIS_CONCURRENCY")
	_ = viper.BindEnv("analysis.lock_ttl_minutes", "ANALYSIS_LOCK_TTL")
	_ = viper.BindEnv("analysis.max_retry", "ANALYSIS_MAX_RETRY")
	_ = viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = viper.BindEnv("openai.model", "OPENAI_MODEL")
	_ = viper.BindEnv("grok.api_key", "GROK_API_KEY")
	_ = viper.BindEnv("grok.base_url", "GROK_BASE_URL")
	_ = viper.BindEnv("grok.model", "GROK_MODEL")
	_ = viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	_ = viper.BindEnv("openrouter.base_url", "OPENROUTER_BASE_URL")
	_ = viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	_ = viper.BindEnv("openrouter.referer", "APP_URL")
	_ = viper.BindEnv("ollama.url", "OLLAMA_URL")
	_ = viper.BindEnv("ollama.model", "OLLAMA_MODEL")

	// Defaults
	viper.SetDefault("server.port", "3001")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("sqlite.path", "./data/photos.db")
	viper.SetDefault("uploads.dir", "./uploads")
	viper.SetDefault("uploads.max_size_mb", 20)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.upload_per_hour", 100)
	viper.SetDefault("analysis.default_provider", "ollama")
	viper.SetDefault("analysis.default_language", "fr")
	viper.SetDefault("analysis.timeout_seconds", 120)
	viper.SetDefault("analysis.concurrency", 2)
	viper.SetDefault("analysis.lock_ttl_minutes", 10)
	viper.SetDefault("analysis.max_retry", 3)

	// Provider defaults
	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o")
	viper.SetDefault("grok.base_url", "https://api.x.ai/v1")
	viper.SetDefault("grok.model", "grok-2-vision-1212")
	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "nvidia/nemotron-nano-12b-v2-vl:free")
	viper.SetDefault("openrouter.title", "Photo Manager")
	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("ollama.model", "llava:7b")

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("sqlite.path"),
		},
		Uploads: UploadsConfig{
			Dir:       viper.GetString("uploads.dir"),
			MaxSizeMB: viper.GetInt("uploads.max_size_mb"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			UploadPerHour: viper.GetInt("ratelimit.upload_per_hour"),
		},
		Analysis: AnalysisConfig{
			DefaultProvider: viper.GetString("analysis.default_provider"),
			DefaultLanguage: viper.GetString("analysis.default_language"),
			TimeoutSeconds:  viper.GetInt("analysis.timeout_seconds"),
			Concurrency:     viper.GetInt("analysis.concurrency"),
			LockTTLMinutes:  viper.GetInt("analysis.lock_ttl_minutes"),
			MaxRetry:        viper.GetInt("analysis.max_retry"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  viper.GetString("openai.api_key"),
			BaseURL: viper.GetString("openai.base_url"),
			Model:   viper.GetString("openai.model"),
		},
		Grok: GrokConfig{
			APIKey:  viper.GetString("grok.api_key"),
			BaseURL: viper.GetString("grok.base_url"),
			Model:   viper.GetString("grok.model"),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:  viper.GetString("openrouter.api_key"),
			BaseURL: viper.GetString("openrouter.base_url"),
			Model:   viper.GetString("openrouter.model"),
			Referer: viper.GetString("openrouter.referer"),
			Title:   viper.GetString("openrouter.title"),
		},
		Ollama: OllamaConfig{
			URL:   viper.GetString("ollama.url"),
			Model: viper.GetString("ollama.model"),
		},
	}

	return cfg, nil
}
