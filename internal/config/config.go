package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for both binaries
type Config struct {
	Server    ServerConfig
	Collector CollectorConfig
	Resolver  ResolverConfig
	Browse    BrowseConfig
	Media     MediaConfig
	Assist    AssistConfig
}

// ServerConfig holds relay HTTP server configuration
type ServerConfig struct {
	Port         string
	ExportPath   string
	RateLimit    float64 // requests per second on /api/fetch, 0 disables
	RateBurst    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CollectorConfig selects and configures the Reddit source
type CollectorConfig struct {
	Mode         string // "public", "proxy", "api" or "mock"
	UserAgent    string
	BaseURL      string
	RelayURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
	MinInterval  time.Duration
}

// ResolverConfig holds upstream resolver tuning
type ResolverConfig struct {
	AttemptTimeout time.Duration
	PresetsFile    string
	FeedLimit      int
	AllowedHosts   []string
}

// BrowseConfig holds fetch controller defaults
type BrowseConfig struct {
	PageSize              int
	EngagementTarget      int
	EngagementMinScore    int
	EngagementMinComments int
	EngagementMaxPages    int
	EngagementPageSize    int
}

type MediaConfig struct {
	MergeServiceURL string
	OutputDir       string
}

type AssistConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	Timeout  time.Duration
}

// Load reads .env (if present) and the environment, applying defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ExportPath:   getEnv("EXPORT_PATH", "data/current.json"),
			RateLimit:    getEnvFloat("RELAY_RATE_LIMIT", 5),
			RateBurst:    getEnvInt("RELAY_RATE_BURST", 10),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
		},
		Collector: CollectorConfig{
			Mode:         getEnv("COLLECTOR_MODE", "public"),
			UserAgent:    os.Getenv("REDDIT_USER_AGENT"),
			BaseURL:      getEnv("REDDIT_BASE_URL", "https://www.reddit.com"),
			RelayURL:     os.Getenv("RELAY_URL"),
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
			Timeout:      getEnvDuration("REDDIT_TIMEOUT", 10*time.Second),
			MinInterval:  getEnvDuration("REDDIT_MIN_INTERVAL", 2*time.Second),
		},
		Resolver: ResolverConfig{
			AttemptTimeout: getEnvDuration("RESOLVER_ATTEMPT_TIMEOUT", 8*time.Second),
			PresetsFile:    os.Getenv("RESOLVER_PRESETS_FILE"),
			FeedLimit:      getEnvInt("RESOLVER_FEED_LIMIT", 25),
			AllowedHosts:   getEnvList("RESOLVER_ALLOWED_HOSTS", []string{"reddit.com", "redd.it"}),
		},
		Browse: BrowseConfig{
			PageSize:              getEnvInt("BROWSE_PAGE_SIZE", 25),
			EngagementTarget:      getEnvInt("ENGAGEMENT_TARGET", 50),
			EngagementMinScore:    getEnvInt("ENGAGEMENT_MIN_SCORE", 1500),
			EngagementMinComments: getEnvInt("ENGAGEMENT_MIN_COMMENTS", 50),
			EngagementMaxPages:    getEnvInt("ENGAGEMENT_MAX_PAGES", 10),
			EngagementPageSize:    getEnvInt("ENGAGEMENT_PAGE_SIZE", 100),
		},
		Media: MediaConfig{
			MergeServiceURL: getEnv("MEDIA_MERGE_URL", "https://rapidsave.com/info"),
			OutputDir:       getEnv("MEDIA_OUTPUT_DIR", "downloads"),
		},
		Assist: AssistConfig{
			APIKey:   os.Getenv("ASSIST_API_KEY"),
			Model:    getEnv("ASSIST_MODEL", "gemini-2.0-flash"),
			Endpoint: os.Getenv("ASSIST_ENDPOINT"),
			Timeout:  getEnvDuration("ASSIST_TIMEOUT", 20*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Collector.Mode {
	case "public", "api", "mock":
	case "proxy":
		if c.Collector.RelayURL == "" {
			return fmt.Errorf("RELAY_URL is required for proxy mode")
		}
	default:
		return fmt.Errorf("unknown COLLECTOR_MODE: %s (use 'public', 'proxy', 'api', or 'mock')", c.Collector.Mode)
	}
	if c.Browse.EngagementPageSize <= 0 || c.Browse.EngagementPageSize > 100 {
		return fmt.Errorf("ENGAGEMENT_PAGE_SIZE must be between 1 and 100, got %d", c.Browse.EngagementPageSize)
	}
	if c.Browse.EngagementTarget < 1 {
		return fmt.Errorf("ENGAGEMENT_TARGET must be at least 1, got %d", c.Browse.EngagementTarget)
	}
	if c.Browse.EngagementMaxPages < 1 {
		return fmt.Errorf("ENGAGEMENT_MAX_PAGES must be at least 1, got %d", c.Browse.EngagementMaxPages)
	}
	if c.Resolver.AttemptTimeout <= 0 {
		return fmt.Errorf("RESOLVER_ATTEMPT_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
