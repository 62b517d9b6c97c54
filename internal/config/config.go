package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// LLMConfig configures the chat-completion backend
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	TopP        float32       `yaml:"top_p"`
	Timeout     time.Duration `yaml:"timeout"`
}

// SearchConfig holds Google Programmable Search Engine credentials used for PDF lookup
type SearchConfig struct {
	APIKey   string        `yaml:"api_key"`
	EngineID string        `yaml:"engine_id"`
	Results  int           `yaml:"results"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CoversConfig holds cover-image lookup settings
type CoversConfig struct {
	GoogleBooksAPIKey  string        `yaml:"google_books_api_key"`
	SearchTimeout      time.Duration `yaml:"search_timeout"`
	ExistenceTimeout   time.Duration `yaml:"existence_timeout"`
	GoogleBooksTimeout time.Duration `yaml:"google_books_timeout"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerSecond  float64  `yaml:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst"`
	DailyQuota     int64    `yaml:"daily_quota"`
}

// Config is the root of the service configuration
type Config struct {
	LLM    LLMConfig    `yaml:"llm"`
	Search SearchConfig `yaml:"search"`
	Covers CoversConfig `yaml:"covers"`
	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			Temperature: 0.7,
			MaxTokens:   800,
			TopP:        0.9,
			Timeout:     8 * time.Second,
		},
		Search: SearchConfig{
			Results: 5,
			Timeout: 15 * time.Second,
		},
		Covers: CoversConfig{
			SearchTimeout:      5 * time.Second,
			ExistenceTimeout:   3 * time.Second,
			GoogleBooksTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:          "8080",
			RatePerSecond: 1,
			RateBurst:     3,
			DailyQuota:    1000,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// BOOKFINDER_CONFIG, and finally environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("BOOKFINDER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString(&c.LLM.Provider, getenv("LLM_PROVIDER"))
	setString(&c.LLM.BaseURL, getenv("LLM_BASE_URL"))
	setString(&c.LLM.Model, getenv("LLM_MODEL"))
	setDuration(&c.LLM.Timeout, getenv("LLM_TIMEOUT"))

	// Provider-specific key names are accepted so an existing .env keeps working
	switch {
	case getenv("LLM_API_KEY") != "":
		c.LLM.APIKey = getenv("LLM_API_KEY")
	case c.LLM.Provider == ProviderGemini && getenv("GEMINI_API_KEY") != "":
		c.LLM.APIKey = getenv("GEMINI_API_KEY")
	case getenv("OPENAI_API_KEY") != "":
		c.LLM.APIKey = getenv("OPENAI_API_KEY")
	}

	setString(&c.Search.APIKey, getenv("GOOGLE_SEARCH_API_KEY"))
	setString(&c.Search.EngineID, getenv("GOOGLE_SEARCH_ENGINE_ID"))
	setDuration(&c.Search.Timeout, getenv("PDF_SEARCH_TIMEOUT"))

	setString(&c.Covers.GoogleBooksAPIKey, getenv("GOOGLE_BOOKS_API_KEY"))

	setDuration(&c.Cache.TTL, getenv("CACHE_TTL"))

	setString(&c.Server.Port, getenv("PORT"))
	setString(&c.Server.Env, getenv("ENV"))
	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
}

// Validate rejects configurations the service cannot run with.
// A missing LLM key is not an error here: the server still starts and
// every search degrades to an empty result.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Search.Results <= 0 {
		c.Search.Results = 5
	}
	return nil
}

// PDFSearchEnabled reports whether both web search credentials are present
func (c *Config) PDFSearchEnabled() bool {
	return c.Search.APIKey != "" && c.Search.EngineID != ""
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v string) {
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}
