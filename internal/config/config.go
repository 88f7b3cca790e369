// Package config loads runtime settings from the environment and the
// sources file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Discord settings
	DiscordToken   string
	ChannelID      string
	AlertChannelID string // operator alerts; empty disables alerting

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Market data settings
	CoinGeckoAPIKey   string
	CryptoPanicAPIKey string

	// Content sources
	SourcesConfigPath string
	MaxItemsPerFeed   int
	NewsMaxAge        time.Duration
	FetchConcurrency  int

	// Selection policy
	TargetItems    int
	MinItems       int
	MaxPerCategory int
	MinNewsScore   int
	MinKOLScore    int

	// Delivery policy
	BatchLimit int

	// Schedule settings
	CronSpec string
	Timezone string

	// Admin server
	AdminAddr     string
	OperatorToken string
	AlertAfter    int // consecutive failures before alerting

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Recency cache settings
	CacheFilePath      string
	CacheRetentionDays int
	DedupThreshold     float64
	DedupStrategy      string // "keyword" or "sequence"
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		GeminiModel:        "gemini-1.5-flash",
		MaxGeminiRequests:  10,
		SourcesConfigPath:  "configs/sources.yaml",
		MaxItemsPerFeed:    10,
		NewsMaxAge:         24 * time.Hour,
		FetchConcurrency:   10,
		TargetItems:        5,
		MinItems:           3,
		MaxPerCategory:     2,
		MinNewsScore:       5,
		MinKOLScore:        60,
		BatchLimit:         1900,
		CronSpec:           "0 9 * * *",
		Timezone:           "Asia/Taipei",
		AdminAddr:          ":8080",
		AlertAfter:         3,
		RequestTimeout:     30 * time.Second,
		RetryAttempts:      3,
		RetryDelay:         5 * time.Second,
		CacheFilePath:      "content_cache.json",
		CacheRetentionDays: 7,
		DedupThreshold:     0.6,
		DedupStrategy:      "keyword",
	}

	cfg.DiscordToken = os.Getenv("DISCORD_BOT_TOKEN")
	cfg.ChannelID = os.Getenv("DISCORD_CHANNEL_ID")
	cfg.AlertChannelID = os.Getenv("DISCORD_ALERT_CHANNEL_ID")
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.CoinGeckoAPIKey = os.Getenv("COINGECKO_API_KEY")
	cfg.CryptoPanicAPIKey = os.Getenv("CRYPTOPANIC_API_KEY")
	cfg.OperatorToken = os.Getenv("OPERATOR_TOKEN")

	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)
	cfg.GeminiModel = getEnvOrDefault("GEMINI_MODEL", cfg.GeminiModel)
	cfg.CacheFilePath = getEnvOrDefault("CACHE_FILE_PATH", cfg.CacheFilePath)
	cfg.CronSpec = getEnvOrDefault("DIGEST_CRON", cfg.CronSpec)
	cfg.Timezone = getEnvOrDefault("DIGEST_TIMEZONE", cfg.Timezone)
	cfg.AdminAddr = getEnvOrDefault("ADMIN_ADDR", cfg.AdminAddr)

	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", cfg.MaxGeminiRequests)
	cfg.MaxItemsPerFeed = getEnvIntOrDefault("MAX_ITEMS_PER_FEED", cfg.MaxItemsPerFeed)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.TargetItems = getEnvIntOrDefault("TARGET_ITEMS", cfg.TargetItems)
	cfg.MinItems = getEnvIntOrDefault("MIN_ITEMS", cfg.MinItems)
	cfg.MaxPerCategory = getEnvIntOrDefault("MAX_PER_CATEGORY", cfg.MaxPerCategory)
	cfg.MinNewsScore = getEnvIntOrDefault("MIN_NEWS_SCORE", cfg.MinNewsScore)
	cfg.MinKOLScore = getEnvIntOrDefault("MIN_KOL_SCORE", cfg.MinKOLScore)
	cfg.BatchLimit = getEnvIntOrDefault("BATCH_LIMIT", cfg.BatchLimit)
	cfg.AlertAfter = getEnvIntOrDefault("ALERT_AFTER_FAILURES", cfg.AlertAfter)
	cfg.CacheRetentionDays = getEnvIntOrDefault("CACHE_RETENTION_DAYS", cfg.CacheRetentionDays)

	cfg.DedupStrategy = getEnvOrDefault("DEDUP_STRATEGY", cfg.DedupStrategy)
	if v := os.Getenv("DEDUP_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 && val <= 1 {
			cfg.DedupThreshold = val
		}
	}
	if v := os.Getenv("NEWS_MAX_AGE_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.NewsMaxAge = time.Duration(val) * time.Hour
		}
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}
	if c.ChannelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.MinItems > c.TargetItems {
		return fmt.Errorf("MIN_ITEMS (%d) must not exceed TARGET_ITEMS (%d)", c.MinItems, c.TargetItems)
	}
	if c.DedupStrategy != "keyword" && c.DedupStrategy != "sequence" {
		return fmt.Errorf("DEDUP_STRATEGY must be %q or %q, got %q", "keyword", "sequence", c.DedupStrategy)
	}
	return nil
}

// Feed is one RSS source.
type Feed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
}

// KOL is one tracked social account.
type KOL struct {
	Handle    string `yaml:"handle"`
	Tier      int    `yaml:"tier"` // 1 = top credibility, 2 = standard
	BaseScore int    `yaml:"base_score,omitempty"`
}

// Sources is the content-source inventory loaded from YAML.
type Sources struct {
	Feeds           []Feed   `yaml:"feeds"`
	KOLs            []KOL    `yaml:"kols"`
	NitterInstances []string `yaml:"nitter_instances"`
}

// LoadSources reads and validates the sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sources config: %w", err)
	}

	var s Sources
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing sources config: %w", err)
	}
	if len(s.Feeds) == 0 {
		return nil, fmt.Errorf("sources config has no feeds")
	}
	return &s, nil
}

// KOLBaseScores maps lowercased handles to their base credibility score.
// An explicit base_score wins; otherwise tier 1 maps to 50, everything
// else to 30.
func (s *Sources) KOLBaseScores() map[string]int {
	scores := make(map[string]int, len(s.KOLs))
	for _, k := range s.KOLs {
		score := 30
		if k.Tier == 1 {
			score = 50
		}
		if k.BaseScore > 0 {
			score = k.BaseScore
		}
		scores[normalizeHandle(k.Handle)] = score
	}
	return scores
}

func normalizeHandle(h string) string {
	if len(h) > 0 && h[0] == '@' {
		h = h[1:]
	}
	b := []byte(h)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
