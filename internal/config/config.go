package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"kardex-service/internal/inventory/model"
)

// Config holds the process configuration read from the environment.
type Config struct {
	Host         string   `envconfig:"HOST" default:"127.0.0.1"`
	Port         int      `envconfig:"PORT" default:"8082"`
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" default:"*"`
	LogLevel     string   `envconfig:"LOG_LEVEL" default:"info"`
	LogFile      string   `envconfig:"LOG_FILE" default:"logs/kardex-service.log"`
	MaxUploadMB  int      `envconfig:"MAX_UPLOAD_MB" default:"32"`

	StoreBackend string `envconfig:"STORE_BACKEND" default:"file"`
	StorePath    string `envconfig:"STORE_PATH" default:"data/kardex.json"`
	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisKey     string `envconfig:"REDIS_KEY" default:"kardex:snapshot"`

	// optional YAML file seeding the settings of a fresh store
	SettingsFile string `envconfig:"SETTINGS_FILE"`
}

// Load reads the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	switch cfg.StoreBackend {
	case "file", "redis":
	default:
		return Config{}, fmt.Errorf("config: STORE_BACKEND must be file or redis, got %q", cfg.StoreBackend)
	}
	if cfg.MaxUploadMB <= 0 {
		return Config{}, errors.New("config: MAX_UPLOAD_MB must be positive")
	}
	return cfg, nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// MaxUploadBytes is the request body limit.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// LoadSettings returns the engine defaults overlaid with the YAML file at
// path, validated. An empty path yields the defaults.
func LoadSettings(path string) (model.Settings, error) {
	s := model.DefaultSettings()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("config: read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &s); err != nil {
		return s, fmt.Errorf("config: parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}
