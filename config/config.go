package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/farewatch-api/internal/amadeus"
	"github.com/jwalitptl/farewatch-api/internal/email"
	"github.com/jwalitptl/farewatch-api/internal/service/pipeline"
	"github.com/jwalitptl/farewatch-api/internal/service/threshold"
	"github.com/jwalitptl/farewatch-api/pkg/messaging/redis"
	"github.com/jwalitptl/farewatch-api/pkg/worker"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port" validate:"required"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type AmadeusConfig struct {
	BaseURL      string        `mapstructure:"base_url" validate:"required,url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Origin              string        `mapstructure:"origin"`
	DepartureOffsetDays int           `mapstructure:"departure_offset_days"`
	FetchInterval       time.Duration `mapstructure:"fetch_interval"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

type SMTPConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	From            string `mapstructure:"from"`
	TrackingBaseURL string `mapstructure:"tracking_base_url"`
	DashboardURL    string `mapstructure:"dashboard_url"`
}

type DispatcherConfig struct {
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec"`
}

type ThresholdConfig struct {
	GatewayURL string        `mapstructure:"gateway_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CleanupConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	RetentionDays int           `mapstructure:"retention_days"`
}

type Config struct {
	Server    ServerConfig     `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig   `mapstructure:"database" validate:"required"`
	Amadeus   AmadeusConfig    `mapstructure:"amadeus" validate:"required"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	SMTP      SMTPConfig       `mapstructure:"smtp"`
	Queue     DispatcherConfig `mapstructure:"queue"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Scheduler SchedulerConfig  `mapstructure:"scheduler"`
	Threshold ThresholdConfig  `mapstructure:"threshold"`
	Cleanup   CleanupConfig    `mapstructure:"cleanup"`
	RateLimit struct {
		RequestsPerSecond float64 `mapstructure:"requests_per_second"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"logging"`
}

// secrets are never read from the YAML file in production; they overlay
// whatever the file carried.
type secrets struct {
	DBPassword      string `envconfig:"DB_PASSWORD"`
	AmadeusID       string `envconfig:"AMADEUS_CLIENT_ID"`
	AmadeusSecret   string `envconfig:"AMADEUS_CLIENT_SECRET"`
	SMTPUsername    string `envconfig:"SMTP_USERNAME"`
	SMTPPassword    string `envconfig:"SMTP_PASSWORD"`
	ThresholdAPIKey string `envconfig:"THRESHOLD_API_KEY"`
	RedisURL        string `envconfig:"REDIS_URL"`
}

func LoadConfig() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/app")
		viper.AddConfigPath("/app/config")
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("", &sec); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}
	applySecrets(&config, sec)

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applySecrets(c *Config, s secrets) {
	if s.DBPassword != "" {
		c.Database.Password = s.DBPassword
	}
	if s.AmadeusID != "" {
		c.Amadeus.ClientID = s.AmadeusID
	}
	if s.AmadeusSecret != "" {
		c.Amadeus.ClientSecret = s.AmadeusSecret
	}
	if s.SMTPUsername != "" {
		c.SMTP.Username = s.SMTPUsername
	}
	if s.SMTPPassword != "" {
		c.SMTP.Password = s.SMTPPassword
	}
	if s.ThresholdAPIKey != "" {
		c.Threshold.APIKey = s.ThresholdAPIKey
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
}

func (c *AmadeusConfig) ToClientConfig() amadeus.Config {
	return amadeus.Config{
		BaseURL:      c.BaseURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Timeout:      c.Timeout,
	}
}

func (c *PipelineConfig) ToServiceConfig() pipeline.Config {
	return pipeline.Config{
		Origin:              c.Origin,
		DepartureOffsetDays: c.DepartureOffsetDays,
		FetchInterval:       c.FetchInterval,
	}
}

func (c *SMTPConfig) ToEmailConfig() email.SMTPConfig {
	return email.SMTPConfig{
		Host:            c.Host,
		Port:            c.Port,
		Username:        c.Username,
		Password:        c.Password,
		From:            c.From,
		TrackingBaseURL: c.TrackingBaseURL,
		DashboardURL:    c.DashboardURL,
	}
}

func (c *DispatcherConfig) ToWorkerConfig() worker.DispatcherConfig {
	return worker.DispatcherConfig{
		BatchSize:    c.BatchSize,
		PollInterval: c.PollInterval,
		MaxRetries:   c.MaxRetries,
		RetryDelay:   c.RetryDelay,
	}
}

func (c *RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

func (c *ThresholdConfig) ToServiceConfig(origin string) threshold.Config {
	return threshold.Config{
		GatewayURL: c.GatewayURL,
		APIKey:     c.APIKey,
		Model:      c.Model,
		Origin:     origin,
		Timeout:    c.Timeout,
	}
}
