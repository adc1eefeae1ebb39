package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	SiteURL               string        `mapstructure:"site_url"`
	HostConfigFile        string        `mapstructure:"host_config_file"`
	PluginID              string        `mapstructure:"plugin_id"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	ActorID      string `mapstructure:"actor_id"`
	ViewerID     string `mapstructure:"viewer_id"`
	CookieHeader string `mapstructure:"cookie_header"`
	CookieFile   string `mapstructure:"cookie_file"`

	ListenAddr     string `mapstructure:"listen_addr"`
	StorageType    string `mapstructure:"storage_type"`
	BBoltPath      string `mapstructure:"bbolt_path"`
	RedisURL       string `mapstructure:"redis_url"`
	PublishersFile string `mapstructure:"publishers_file"`
}

// StoragePath returns the location handed to the configured storage backend.
func (c *Config) StoragePath() string {
	if c.StorageType == "redis" {
		return c.RedisURL
	}
	return c.BBoltPath
}

// DefaultPluginID is the id the follow endpoint is mounted under.
const DefaultPluginID = "com.tcg.followers"

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "followers")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("site_url", "")
	v.SetDefault("host_config_file", "")
	v.SetDefault("plugin_id", DefaultPluginID)
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("actor_id", "")
	v.SetDefault("viewer_id", "")
	v.SetDefault("cookie_header", "")
	v.SetDefault("cookie_file", "")
	v.SetDefault("listen_addr", ":8065")
	v.SetDefault("storage_type", "memory")
	v.SetDefault("bbolt_path", "./data/follows.db")
	v.SetDefault("redis_url", "")
	v.SetDefault("publishers_file", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	c.PluginID = strings.TrimSpace(c.PluginID)
	if c.PluginID == "" {
		return fmt.Errorf("invalid plugin_id (must not be empty)")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second

	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	switch c.StorageType {
	case "", "memory", "bbolt":
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("redis_url is required when storage_type is redis")
		}
	default:
		return fmt.Errorf("invalid storage_type %q (expected memory, bbolt or redis)", c.StorageType)
	}
	c.ActorID = strings.TrimSpace(c.ActorID)
	c.ViewerID = strings.TrimSpace(c.ViewerID)
	return nil
}
