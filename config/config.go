package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Providers ProvidersConfig `mapstructure:"providers"`
	NewsAPI   NewsAPIConfig   `mapstructure:"newsapi"`
	Reddit    RedditConfig    `mapstructure:"reddit"`
	Bluesky   BlueskyConfig   `mapstructure:"bluesky"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Cache     CacheConfig     `mapstructure:"cache"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// StorageConfig contains storage and persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN assembles a postgres connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. Redis is only used when the
// content cache is configured with the redis backend.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// ProvidersConfig contains LLM provider settings.
type ProvidersConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// OpenAIConfig configures the OpenAI chat-completions client.
type OpenAIConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	CompletionModel string        `mapstructure:"completion_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

func (o OpenAIConfig) Validate() error {
	if strings.TrimSpace(o.APIKey) == "" {
		return fmt.Errorf("providers.openai.api_key required")
	}
	return nil
}

// NewsAPIConfig configures the news search provider and its credential pool.
// Keys may be listed in the config file or supplied as numbered environment
// variables (NEWS_API_KEY1, NEWS_API_KEY2, ...).
type NewsAPIConfig struct {
	Endpoint    string   `mapstructure:"endpoint"`
	Keys        []string `mapstructure:"keys"`
	MaxAttempts int      `mapstructure:"max_attempts"`
}

func (n NewsAPIConfig) Validate() error {
	if len(n.Keys) == 0 {
		return fmt.Errorf("newsapi.keys required (or NEWS_API_KEY1..N env vars)")
	}
	return nil
}

// RedditConfig contains Reddit application credentials.
type RedditConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	UserAgent    string `mapstructure:"user_agent"`
}

// BlueskyConfig contains Bluesky account credentials.
type BlueskyConfig struct {
	Host        string `mapstructure:"host"`
	Handle      string `mapstructure:"handle"`
	AppPassword string `mapstructure:"app_password"`
}

// LimitsConfig contains the per-search admission caps and filters.
type LimitsConfig struct {
	MaxLeftArticles     int `mapstructure:"max_left_articles"`
	MaxRightArticles    int `mapstructure:"max_right_articles"`
	MaxTotalArticles    int `mapstructure:"max_total_articles"`
	MinContentLength    int `mapstructure:"min_content_length"`
	SocialResults       int `mapstructure:"social_results"`
	ClassifyConcurrency int `mapstructure:"classify_concurrency"`
}

// CacheConfig controls the scraped-content cache.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // memory or redis
	MaxEntries int           `mapstructure:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// maxNumberedKeys bounds the NEWS_API_KEY<N> environment scan.
const maxNumberedKeys = 64

// LoadConfig loads config from file and environment. A missing config file is
// not fatal: every value can be supplied through SPECTRUM_* environment
// variables or defaults.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("general.listen", ":8000")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("newsapi.endpoint", "https://newsapi.org/v2/everything")
	viper.SetDefault("newsapi.max_attempts", 3)
	viper.SetDefault("providers.openai.completion_model", "gpt-4o-mini")
	viper.SetDefault("providers.openai.temperature", 0.2)
	viper.SetDefault("providers.openai.timeout", time.Minute)
	viper.SetDefault("bluesky.host", "https://bsky.social")
	viper.SetDefault("limits.max_left_articles", 20)
	viper.SetDefault("limits.max_right_articles", 20)
	viper.SetDefault("limits.max_total_articles", 50)
	viper.SetDefault("limits.min_content_length", 100)
	viper.SetDefault("limits.social_results", 20)
	viper.SetDefault("limits.classify_concurrency", 8)
	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.max_entries", 512)
	viper.SetDefault("cache.ttl", time.Hour)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("SPECTRUM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	// Direct env fallbacks shared with the original deployment layout.
	if config.Storage.Postgres.URL == "" {
		config.Storage.Postgres.URL = os.Getenv("DATABASE_URL")
	}
	if config.Providers.OpenAI.APIKey == "" {
		config.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if config.Reddit.ClientID == "" {
		config.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	}
	if config.Reddit.ClientSecret == "" {
		config.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	}
	if config.Reddit.UserAgent == "" {
		config.Reddit.UserAgent = os.Getenv("REDDIT_USER_AGENT")
	}
	if config.Bluesky.Handle == "" {
		config.Bluesky.Handle = os.Getenv("BLUESKY_HANDLE")
	}
	if config.Bluesky.AppPassword == "" {
		config.Bluesky.AppPassword = os.Getenv("BLUESKY_APP_PASSWORD")
	}
	if len(config.NewsAPI.Keys) == 0 {
		config.NewsAPI.Keys = numberedKeysFromEnv("NEWS_API_KEY")
	}

	return &config
}

// numberedKeysFromEnv collects prefix1..prefixN environment variables in
// order, skipping gaps, up to maxNumberedKeys.
func numberedKeysFromEnv(prefix string) []string {
	var keys []string
	for i := 1; i <= maxNumberedKeys; i++ {
		if key := os.Getenv(fmt.Sprintf("%s%d", prefix, i)); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}
