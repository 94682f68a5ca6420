package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Persist    PersistConfig    `mapstructure:"persist"`
	Recurrence RecurrenceConfig `mapstructure:"recurrence"`
	History    HistoryConfig    `mapstructure:"history"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Cache      CacheConfig      `mapstructure:"cache"`
	AMQP       AMQPConfig       `mapstructure:"amqp"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend    string `mapstructure:"backend"`
	SQLitePath string `mapstructure:"sqlite_path"`
	// MemoryFile optionally backs the memory backend with a JSON file.
	MemoryFile string `mapstructure:"memory_file"`
}

type PersistConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

type RecurrenceConfig struct {
	// Cap limits generated instances per template; 0 disables it.
	Cap           int `mapstructure:"cap"`
	HorizonMonths int `mapstructure:"horizon_months"`
}

type HistoryConfig struct {
	MaxItems int `mapstructure:"max_items"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
	Queue    string `mapstructure:"queue"`
}

type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	validBackends  = []string{"sqlite", "memory"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{"text", "json"}
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.sqlite_path", "./data/saldo.db")
	v.SetDefault("storage.memory_file", "")

	v.SetDefault("persist.debounce", 500*time.Millisecond)

	v.SetDefault("recurrence.cap", 1000)
	v.SetDefault("recurrence.horizon_months", 12)

	v.SetDefault("history.max_items", 100)

	v.SetDefault("ratelimit.rps", 10.0)
	v.SetDefault("ratelimit.burst", 20)

	v.SetDefault("cache.size", 256)
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "saldo")
	v.SetDefault("amqp.queue", "account_sync")

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.credentials_json", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads defaults, then the optional TOML file named by SALDO_CONFIG,
// then SALDO_* environment variables (server.port -> SALDO_SERVER_PORT).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")
	if path := os.Getenv("SALDO_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SALDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid read timeout %v: must be positive", c.Server.ReadTimeout))
	}
	if c.Server.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid write timeout %v: must be positive", c.Server.WriteTimeout))
	}

	if !slices.Contains(validBackends, c.Storage.Backend) {
		errors = append(errors, fmt.Sprintf("invalid storage backend '%s': must be one of %v", c.Storage.Backend, validBackends))
	}
	if c.Storage.Backend == "sqlite" {
		if c.Storage.SQLitePath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.Storage.SQLitePath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.Persist.Debounce < 10*time.Millisecond || c.Persist.Debounce > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid persist debounce %v: must be between 10ms and 1m", c.Persist.Debounce))
	}

	if c.Recurrence.Cap < 0 {
		errors = append(errors, fmt.Sprintf("invalid recurrence cap %d: must be 0 (disabled) or positive", c.Recurrence.Cap))
	}
	if c.Recurrence.HorizonMonths < 1 || c.Recurrence.HorizonMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid recurrence horizon %d: must be between 1 and 120 months", c.Recurrence.HorizonMonths))
	}

	if c.History.MaxItems < 1 {
		errors = append(errors, fmt.Sprintf("invalid history size %d: must be at least 1", c.History.MaxItems))
	}

	if c.RateLimit.RPS <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimit.RPS))
	}
	if c.RateLimit.Burst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimit.Burst))
	}

	if c.Cache.Size < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.Cache.Size))
	}
	if c.Cache.TTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must be positive", c.Cache.TTL))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.Queue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.Sheets.CredentialsFile != "" {
		if _, err := os.Stat(c.Sheets.CredentialsFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.Sheets.CredentialsFile))
		}
	}

	if !slices.Contains(validLogLevels, strings.ToLower(c.Log.Level)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.Log.Level, validLogLevels))
	}
	if !slices.Contains(validFormats, strings.ToLower(c.Log.Format)) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.Log.Format, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateWorker checks the settings the sync worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQP.URL == "" {
		errors = append(errors, "AMQP URL is required for the sync worker")
	}
	if c.Sheets.SpreadsheetID == "" {
		errors = append(errors, "Google Spreadsheet ID is required for the sync worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
