package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Storage         string   `mapstructure:"storage"`
	DatabaseURL     string   `mapstructure:"database_url"`
	SupabaseAnonKey string   `mapstructure:"supabase_anon_key"`
	Server          Server   `mapstructure:"server"`
	Logger          Logger   `mapstructure:"logger"`
	Database        Database `mapstructure:"database"`
	Realtime        Realtime `mapstructure:"realtime"`
	API             API      `mapstructure:"api"`
	Telegram        Telegram `mapstructure:"telegram"`
	Firebase        Firebase `mapstructure:"firebase"`
	Alerts          Alerts   `mapstructure:"alerts"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the connection pool settings.
type Database struct {
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// Realtime holds the change feed listener settings.
type Realtime struct {
	Channel        string        `mapstructure:"channel"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// API holds the limits applied to /api routes.
type API struct {
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

type Telegram struct {
	BotToken  string  `mapstructure:"bot_token"`
	BaseURL   string  `mapstructure:"base_url"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

type Firebase struct {
	CredentialsPath string `mapstructure:"credentials_path"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type Alerts struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// Storage backends.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// ErrMissing is returned when a required setting is absent.
var ErrMissing = errors.New("missing required configuration")

// Option adjusts the viper instance after defaults are set.
type Option func(*viper.Viper)

// WithValue pins key to value above the file and the environment. Commands
// use it to apply their flags.
func WithValue(key string, value any) Option {
	return func(v *viper.Viper) {
		v.Set(key, value)
	}
}

// LoadConfig reads configuration from an optional config.yml in path, a
// .env file in the working directory and the environment, in increasing
// order of precedence. opts apply last.
func LoadConfig(path string, opts ...Option) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	for _, opt := range opts {
		opt(v)
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a useful default still need registering so that
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("storage", StoragePostgres)
	v.SetDefault("database_url", "")
	v.SetDefault("supabase_anon_key", "")

	v.SetDefault("server.port", 8080)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("database.health_check_period", 30*time.Second)

	v.SetDefault("realtime.channel", "archon_changes")
	v.SetDefault("realtime.reconnect_delay", 5*time.Second)

	v.SetDefault("api.rate_limit", 20)       // requests per second
	v.SetDefault("api.rate_limit_burst", 40) // burst size

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.rate_limit", 25)

	v.SetDefault("firebase.credentials_path", "")
	v.SetDefault("firebase.credentials_json", "")

	v.SetDefault("alerts.cooldown", 10*time.Minute)
}

// Validate fails when a required setting is empty. The memory backend needs
// no database.
func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q, want %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}

	var missing []string
	if c.Storage == StoragePostgres && strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.SupabaseAnonKey) == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	return nil
}
