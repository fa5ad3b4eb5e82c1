// Package config loads service configuration from defaults, an optional YAML file and the environment
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/baely/bezos/internal/common/errors"
)

// Config is the full service configuration
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Feed   FeedConfig   `mapstructure:"feed" yaml:"feed"`
	DB     DBConfig     `mapstructure:"db" yaml:"db"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Notify NotifyConfig `mapstructure:"notify" yaml:"notify"`
}

// ServerConfig controls the HTTP listener
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	Hosts           []string      `mapstructure:"hosts" yaml:"hosts"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// FeedConfig controls the transaction monitor
type FeedConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	WindowYear     int           `mapstructure:"window_year" yaml:"window_year"`
	WindowMonth    int           `mapstructure:"window_month" yaml:"window_month"`
}

// DBConfig selects the merchant store. DSN wins over the individual postgres fields.
type DBConfig struct {
	Driver   string `mapstructure:"driver" yaml:"driver"`
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Name     string `mapstructure:"name" yaml:"name"`
}

// LogConfig controls the process logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// NotifyConfig configures the outbound webhook. An empty URL disables it.
type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url" yaml:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the default service configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Hosts:           []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Feed: FeedConfig{
			URL:            "https://61b3dea5af5ff70017ca20bf.mockapi.io/transactions",
			PollInterval:   10 * time.Second,
			RequestTimeout: 10 * time.Second,
			WindowYear:     2029,
			WindowMonth:    int(time.January),
		},
		DB: DBConfig{
			Driver: "sqlite3",
			DSN:    "bezos.sqlite",
			Port:   "5432",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (if non-empty) and
// environment variables such as FEED_POLL_INTERVAL or DB_DRIVER, in increasing priority
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "failed to read config file %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.hosts", d.Server.Hosts)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.poll_interval", d.Feed.PollInterval)
	v.SetDefault("feed.request_timeout", d.Feed.RequestTimeout)
	v.SetDefault("feed.window_year", d.Feed.WindowYear)
	v.SetDefault("feed.window_month", d.Feed.WindowMonth)

	v.SetDefault("db.driver", d.DB.Driver)
	v.SetDefault("db.dsn", d.DB.DSN)
	v.SetDefault("db.user", d.DB.User)
	v.SetDefault("db.password", d.DB.Password)
	v.SetDefault("db.host", d.DB.Host)
	v.SetDefault("db.port", d.DB.Port)
	v.SetDefault("db.name", d.DB.Name)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("notify.webhook_url", d.Notify.WebhookURL)
	v.SetDefault("notify.timeout", d.Notify.Timeout)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var problems []string

	if c.Feed.URL == "" {
		problems = append(problems, "feed.url must be set")
	}
	if c.Feed.PollInterval <= 0 {
		problems = append(problems, "feed.poll_interval must be positive")
	}
	if c.Feed.RequestTimeout <= 0 {
		problems = append(problems, "feed.request_timeout must be positive")
	}
	if c.Feed.WindowMonth < 1 || c.Feed.WindowMonth > 12 {
		problems = append(problems, fmt.Sprintf("feed.window_month %d is not a month", c.Feed.WindowMonth))
	}
	switch c.DB.Driver {
	case "sqlite3", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("db.driver %q is not one of sqlite3, postgres", c.DB.Driver))
	}
	if len(c.Server.Hosts) == 0 {
		problems = append(problems, "server.hosts must list at least one host")
	}

	if len(problems) > 0 {
		return errors.Mark(errors.ErrInvalidInput, "invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// YAML renders the configuration with secrets masked
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.DB.Password != "" {
		redacted.DB.Password = "********"
	}
	return yaml.Marshal(&redacted)
}
