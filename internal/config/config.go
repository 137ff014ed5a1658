package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	Auth      AuthConfig      `mapstructure:"auth"`
	Media     MediaConfig     `mapstructure:"media"`
	Store     StoreConfig     `mapstructure:"store"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type AuthConfig struct {
	Secret          string `mapstructure:"secret"`
	TokenQueryParam string `mapstructure:"token_query_param"`
}

type MediaConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type StoreConfig struct {
	Backend    string      `mapstructure:"backend"`
	HistoryCap int64       `mapstructure:"history_cap"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WebSocketConfig struct {
	ReadLimit      int64         `mapstructure:"read_limit"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	RateLimit      int           `mapstructure:"rate_limit"`
	RateWindow     time.Duration `mapstructure:"rate_window"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)

	v.SetDefault("auth.secret", "dev-secret")
	v.SetDefault("auth.token_query_param", "token")

	v.SetDefault("media.enabled", false)
	v.SetDefault("media.url", "")
	v.SetDefault("media.api_key", "")
	v.SetDefault("media.api_secret", "")
	v.SetDefault("media.token_ttl", "6h")

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.history_cap", 500)
	v.SetDefault("store.redis.address", "localhost:6379")
	v.SetDefault("store.redis.db", 0)

	v.SetDefault("websocket.read_limit", 65536)
	v.SetDefault("websocket.send_buffer", 32)
	v.SetDefault("websocket.write_timeout", "10s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.ping_period", "54s")
	v.SetDefault("websocket.stale_after", "90s")
	v.SetDefault("websocket.sample_interval", "30s")
	v.SetDefault("websocket.rate_limit", 120)
	v.SetDefault("websocket.rate_window", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.New("invalid server port")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth.secret must be set")
	}
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid store backend: %s", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && c.Store.Redis.Address == "" {
		return errors.New("store.redis.address must be set for the redis backend")
	}
	if c.Media.Enabled && (c.Media.APIKey == "" || c.Media.APISecret == "") {
		return errors.New("media.api_key and media.api_secret must be set when media is enabled")
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return errors.New("websocket.ping_period must be less than pong_wait")
	}
	if c.WebSocket.RateLimit < 1 || c.WebSocket.RateWindow <= 0 {
		return errors.New("websocket.rate_limit and rate_window must be positive")
	}
	return nil
}
