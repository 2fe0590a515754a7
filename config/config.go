package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Search providers
const (
	SearchProviderReasoning = "reasoning"
	SearchProviderJina      = "jina"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Reasoning    ReasoningConfig    `mapstructure:"reasoning"`
	Search       SearchConfig       `mapstructure:"search"`
	Fetcher      FetcherConfig      `mapstructure:"fetcher"`
	USDA         USDAConfig         `mapstructure:"usda"`
	Verification VerificationConfig `mapstructure:"verification"`
	Similarity   SimilarityConfig   `mapstructure:"similarity"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ReasoningConfig holds the OpenAI-compatible reasoning service configuration
type ReasoningConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	SearchModel       string        `mapstructure:"search_model"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// SearchConfig selects and configures the web search provider
type SearchConfig struct {
	Provider string        `mapstructure:"provider"` // "reasoning" or "jina"
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// FetcherConfig holds page fetcher configuration
type FetcherConfig struct {
	Timeout            time.Duration `mapstructure:"timeout"`
	UserAgent          string        `mapstructure:"user_agent"`
	SoftBlockMinLength int           `mapstructure:"soft_block_min_length"`
}

// USDAConfig holds USDA API configuration. The database source is disabled
// when no API key is set; barcode lookups are cached only with a positive CacheTTL.
type USDAConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Enabled reports whether the USDA database source should be used
func (c USDAConfig) Enabled() bool {
	return c.APIKey != ""
}

// VerificationConfig holds escalation and pipeline settings
type VerificationConfig struct {
	Phase1Target             int               `mapstructure:"phase1_target"`
	Phase2Extra              int               `mapstructure:"phase2_extra"`
	OverallTimeout           time.Duration     `mapstructure:"overall_timeout"`
	DatabaseTimeout          time.Duration     `mapstructure:"database_timeout"`
	MaxCandidatesPerRetailer int               `mapstructure:"max_candidates_per_retailer"`
	MaxBatches               int               `mapstructure:"max_batches"`
	Retailers                []domain.Retailer `mapstructure:"retailers"`
	Debug                    bool              `mapstructure:"debug"`
}

// SimilarityConfig holds ingredient list match thresholds
type SimilarityConfig struct {
	ShortListWordLimit int     `mapstructure:"short_list_word_limit"`
	ShortListThreshold float64 `mapstructure:"short_list_threshold"`
	LongListThreshold  float64 `mapstructure:"long_list_threshold"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // verification requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}
	v := newViper()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/allergyaware/")

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFile loads configuration from an explicit file, with environment
// variables still taking precedence.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return decode(v)
}

// loadEnvFile exports the variables of a ./.env file that are not already
// set in the environment. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return fmt.Errorf("error setting %s: %w", name, err)
		}
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()

	// ALLERGYAWARE_REASONING_API_KEY -> reasoning.api_key
	v.SetEnvPrefix("ALLERGYAWARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Keys without a meaningful
// default are still registered so AutomaticEnv can fill them.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	// Reasoning defaults
	v.SetDefault("reasoning.api_key", "")
	v.SetDefault("reasoning.base_url", "https://api.openai.com/v1")
	v.SetDefault("reasoning.model", "gpt-4o-mini")
	v.SetDefault("reasoning.search_model", "gpt-4o-mini-search-preview")
	v.SetDefault("reasoning.timeout", "30s")
	v.SetDefault("reasoning.requests_per_minute", 60)

	// Search defaults
	v.SetDefault("search.provider", SearchProviderReasoning)
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.base_url", "https://s.jina.ai")
	v.SetDefault("search.timeout", "15s")

	// Fetcher defaults
	v.SetDefault("fetcher.timeout", "8s")
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.soft_block_min_length", 20000)

	// USDA defaults
	v.SetDefault("usda.api_key", "")
	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc")
	v.SetDefault("usda.cache_ttl", "0s")

	// Verification defaults
	v.SetDefault("verification.phase1_target", 3)
	v.SetDefault("verification.phase2_extra", 2)
	v.SetDefault("verification.overall_timeout", "90s")
	v.SetDefault("verification.database_timeout", "10s")
	v.SetDefault("verification.max_candidates_per_retailer", 3)
	v.SetDefault("verification.max_batches", 3)
	v.SetDefault("verification.debug", false)

	// Similarity defaults
	v.SetDefault("similarity.short_list_word_limit", 15)
	v.SetDefault("similarity.short_list_threshold", 0.90)
	v.SetDefault("similarity.long_list_threshold", 0.85)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 10)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Reasoning.APIKey == "" {
		return fmt.Errorf("reasoning API key is required (set ALLERGYAWARE_REASONING_API_KEY)")
	}

	if config.Search.Provider != SearchProviderReasoning && config.Search.Provider != SearchProviderJina {
		return fmt.Errorf("search provider must be 'reasoning' or 'jina', got: %s", config.Search.Provider)
	}

	if config.Verification.Phase1Target <= 0 || config.Verification.Phase2Extra <= 0 {
		return fmt.Errorf("phase targets must be positive, got phase1_target=%d phase2_extra=%d",
			config.Verification.Phase1Target, config.Verification.Phase2Extra)
	}

	for name, threshold := range map[string]float64{
		"short_list_threshold": config.Similarity.ShortListThreshold,
		"long_list_threshold":  config.Similarity.LongListThreshold,
	} {
		if threshold <= 0 || threshold > 1 {
			return fmt.Errorf("similarity %s must be in (0, 1], got: %v", name, threshold)
		}
	}

	if config.RateLimit.PerIP <= 0 {
		return fmt.Errorf("ratelimit per_ip must be positive, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
