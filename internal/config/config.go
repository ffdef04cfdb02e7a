package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultQuery selects single RTX 4090 machines in the EU that can hold the
// model and serve it with decent bandwidth.
const DefaultQuery = "cuda_vers>=12.6 disk_space>=30 cpu_ram>=20 gpu_name=RTX_4090 num_gpus=1 " +
	"inet_up>=200 inet_down>=200 dlperf>20 verified=true reliability>=0.99 " +
	"geolocation in [AT,BE,BG,CY,CZ,DE,DK,EE,ES,FI,FR,GR,HR,HU,IE,IT,LT,LU,LV,MT,NL,PL,PT,RO,SE,SI,SK]"

const (
	DefaultImage   = "ghcr.io/ggerganov/llama.cpp:server-cuda-b4154"
	DefaultOnStart = "cd / && ./llama-server --hf-repo unsloth/Qwen2.5-Coder-32B-Instruct-128K-GGUF " +
		"--hf-file Qwen2.5-Coder-32B-Instruct-Q4_K_M.gguf --host 0.0.0.0 --port 8081 --gpu-layers 65 -c 15000"
)

// Config represents the application configuration
type Config struct {
	Marketplace MarketplaceConfig `yaml:"marketplace"`
	Search      SearchConfig      `yaml:"search"`
	Estimate    EstimateConfig    `yaml:"estimate"`
	Launch      LaunchConfig      `yaml:"launch"`
	Poll        PollConfig        `yaml:"poll"`
	NATS        NATSConfig        `yaml:"nats"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// MarketplaceConfig points at the vastai CLI
type MarketplaceConfig struct {
	Binary string `yaml:"binary"`
	APIKey string `yaml:"apiKey"`
}

// SearchConfig controls which offers are fetched and how many are shown
type SearchConfig struct {
	Query string `yaml:"query"`
	Top   int    `yaml:"top"`
}

// EstimateConfig holds the usage assumptions behind the cost estimate
type EstimateConfig struct {
	StorageGB   float64 `yaml:"storageGB"`
	MonthHours  float64 `yaml:"monthHours"`
	DownloadGB  float64 `yaml:"downloadGB"`
	UploadGB    float64 `yaml:"uploadGB"`
	WindowHours float64 `yaml:"windowHours"`
}

// LaunchConfig describes the workload started on the rented machine
type LaunchConfig struct {
	Image   string `yaml:"image"`
	DiskGB  int    `yaml:"diskGB"`
	Env     string `yaml:"env"`
	OnStart string `yaml:"onStart"`
	Port    int    `yaml:"port"`
}

// PollConfig controls the readiness loop. Zero Timeout and MaxAttempts mean
// poll until ready.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// NATSConfig represents NATS configuration. Empty URL disables events.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// MetricsConfig represents Pushgateway configuration. Empty URL disables the push.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayURL"`
	Job            string `yaml:"job"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Config {
	return &Config{
		Marketplace: MarketplaceConfig{
			Binary: "vastai",
		},
		Search: SearchConfig{
			Query: DefaultQuery,
			Top:   3,
		},
		Estimate: EstimateConfig{
			StorageGB:   30,
			MonthHours:  720,
			DownloadGB:  30,
			UploadGB:    10,
			WindowHours: 4,
		},
		Launch: LaunchConfig{
			Image:   DefaultImage,
			DiskGB:  30,
			Env:     "-p 8081:8081",
			OnStart: DefaultOnStart,
			Port:    8081,
		},
		Poll: PollConfig{
			Interval: 5 * time.Second,
		},
		NATS: NATSConfig{
			Subject: "vastdeploy.events",
		},
		Metrics: MetricsConfig{
			Job: "vastdeploy",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.config/vastdeploy/config.yaml, or an empty string
// when the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "vastdeploy", "config.yaml")
}

// Load loads configuration from file, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() error {
	c.Marketplace.Binary = getEnv("VASTAI_BINARY", c.Marketplace.Binary)
	c.Marketplace.APIKey = getEnv("VASTAI_API_KEY", c.Marketplace.APIKey)
	c.Search.Query = getEnv("VASTDEPLOY_QUERY", c.Search.Query)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.NATS.Subject = getEnv("NATS_SUBJECT", c.NATS.Subject)
	c.Metrics.PushgatewayURL = getEnv("PUSHGATEWAY_URL", c.Metrics.PushgatewayURL)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	var err error
	if c.Search.Top, err = getEnvInt("VASTDEPLOY_TOP", c.Search.Top); err != nil {
		return err
	}
	if c.Poll.MaxAttempts, err = getEnvInt("VASTDEPLOY_POLL_MAX_ATTEMPTS", c.Poll.MaxAttempts); err != nil {
		return err
	}
	if c.Poll.Interval, err = getEnvDuration("VASTDEPLOY_POLL_INTERVAL", c.Poll.Interval); err != nil {
		return err
	}
	if c.Poll.Timeout, err = getEnvDuration("VASTDEPLOY_POLL_TIMEOUT", c.Poll.Timeout); err != nil {
		return err
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Marketplace.Binary == "" {
		return fmt.Errorf("marketplace binary is required")
	}
	if c.Search.Query == "" {
		return fmt.Errorf("search query is required")
	}
	if c.Search.Top <= 0 {
		return fmt.Errorf("search top must be positive, got %d", c.Search.Top)
	}
	if c.Estimate.MonthHours <= 0 {
		return fmt.Errorf("estimate monthHours must be positive")
	}
	if c.Launch.Image == "" {
		return fmt.Errorf("launch image is required")
	}
	if c.Launch.Port <= 0 || c.Launch.Port > 65535 {
		return fmt.Errorf("launch port %d out of range", c.Launch.Port)
	}
	if c.Launch.DiskGB <= 0 {
		return fmt.Errorf("launch diskGB must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Poll.Timeout < 0 || c.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll timeout and maxAttempts must not be negative")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as int with a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return intValue, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
