package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Chatbot   ChatbotConfig   `mapstructure:"chatbot"`
	Events    EventsConfig    `mapstructure:"events"`
	CheckIn   CheckInConfig   `mapstructure:"checkin"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  int    `mapstructure:"connect_timeout"`
}

// Chatbot transport modes
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

type ChatbotConfig struct {
	Token       string `mapstructure:"token"`
	Mode        string `mapstructure:"mode"`
	WebhookURL  string `mapstructure:"webhook_url"`
	Timeout     int    `mapstructure:"timeout"`
	PollTimeout int    `mapstructure:"poll_timeout"`
	Debug       bool   `mapstructure:"debug"`
}

type EventsConfig struct {
	ShutdownTimeout int `mapstructure:"shutdown_timeout"`
}

type CheckInConfig struct {
	DefaultCheckHour      int  `mapstructure:"default_check_hour"`
	DefaultTimeoutMinutes int  `mapstructure:"default_timeout_minutes"`
	RecoverOnStart        bool `mapstructure:"recover_on_start"`
}

type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	PollInterval    int    `mapstructure:"poll_interval"`
	Timezone        string `mapstructure:"timezone"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// Validate rejects values the services cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver)
	}

	switch c.Chatbot.Mode {
	case ModePolling, ModeWebhook:
	default:
		return fmt.Errorf("chatbot.mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Chatbot.Mode)
	}

	if c.CheckIn.DefaultCheckHour < 0 || c.CheckIn.DefaultCheckHour > 23 {
		return fmt.Errorf("checkin.default_check_hour must be between 0 and 23, got %d", c.CheckIn.DefaultCheckHour)
	}
	if c.CheckIn.DefaultTimeoutMinutes <= 0 {
		return fmt.Errorf("checkin.default_timeout_minutes must be positive, got %d", c.CheckIn.DefaultTimeoutMinutes)
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("scheduler.poll_interval must be positive, got %d", c.Scheduler.PollInterval)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("scheduler.timezone: %w", err)
	}

	return nil
}

// Location resolves the configured timezone used for hour and date comparisons
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wellcheck")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.connect_timeout", 30)

	v.SetDefault("chatbot.token", "")
	v.SetDefault("chatbot.mode", ModePolling)
	v.SetDefault("chatbot.webhook_url", "")
	v.SetDefault("chatbot.timeout", 30)
	v.SetDefault("chatbot.poll_timeout", 60)
	v.SetDefault("chatbot.debug", false)

	v.SetDefault("events.shutdown_timeout", 30)

	v.SetDefault("checkin.default_check_hour", 9)
	v.SetDefault("checkin.default_timeout_minutes", 30)
	v.SetDefault("checkin.recover_on_start", true)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.poll_interval", 60) // seconds
	v.SetDefault("scheduler.timezone", "")
	v.SetDefault("scheduler.shutdown_timeout", 30)

	v.SetDefault("log.level", "info")
}
