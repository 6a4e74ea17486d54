// Package config provides configuration management for the auditor.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"financial_auditor/pkg/core/logging"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	DataProvider DataProviderConfig `mapstructure:"data_provider"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Logging      logging.LogConfig  `mapstructure:"logging"`
	Analysis     AnalysisConfig     `mapstructure:"analysis"`
	Credentials  Credentials        `mapstructure:"-"` // Environment only
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DataProviderConfig holds Alpha Vantage client configuration.
type DataProviderConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// CacheConfig holds the provider response cache configuration.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Dir         string        `mapstructure:"dir"`
	DatabaseURL string        `mapstructure:"database_url"`
	TTL         time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// AnalysisConfig holds anomaly analysis configuration.
type AnalysisConfig struct {
	PromptDir   string  `mapstructure:"prompt_dir"`
	ModelsFile  string  `mapstructure:"models_file"`
	AgentType   string  `mapstructure:"agent_type" validate:"required"`
	MaxTokens   int     `mapstructure:"max_tokens" validate:"gte=0"`
	Temperature float64 `mapstructure:"temperature" validate:"gte=0,lte=2"`
}

// Credentials holds LLM API credentials, read from the environment.
type Credentials struct {
	Gemini    string
	OpenAI    string
	DeepSeek  string
	DashScope string
}

// Defaults applied before the config file is read.
var defaults = map[string]interface{}{
	"server.addr":            ":8080",
	"server.allowed_origins": []string{"http://localhost:3000", "http://localhost:5173"},
	"data_provider.base_url": "https://www.alphavantage.co/query",
	"data_provider.timeout":  "30s",
	"cache.enabled":          false,
	"cache.dir":              ".cache/reports",
	"cache.ttl":              "24h",
	"logging.level":          "info",
	"logging.console":        true,
	"logging.file":           false,
	"logging.file_path":      ".cache/logs/auditor.log",
	"logging.max_size":       50,
	"logging.max_backups":    5,
	"logging.max_age":        14,
	"analysis.prompt_dir":    "resources",
	"analysis.models_file":   "config/models.yaml",
	"analysis.agent_type":    "auditor",
	"analysis.max_tokens":    2048,
	"analysis.temperature":   0.2,
}

// Load reads .env (if present), then the YAML config at path, then environment overrides.
// A missing config file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.DataProvider.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Cache.DatabaseURL = v
	}
	if v := os.Getenv("AUDITOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AUDITOR_ADDR"); v != "" {
		cfg.Server.Addr = v
	}

	cfg.Credentials.Gemini = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	cfg.Credentials.OpenAI = os.Getenv("OPENAI_API_KEY")
	cfg.Credentials.DeepSeek = os.Getenv("DEEPSEEK_API_KEY")
	cfg.Credentials.DashScope = firstNonEmpty(os.Getenv("DASHSCOPE_API_KEY"), os.Getenv("QWEN_API_KEY"))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var validate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %q validation (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// CacheEnabled reports whether any cache backend is configured and switched on.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled && (c.Cache.Dir != "" || c.Cache.DatabaseURL != "")
}
