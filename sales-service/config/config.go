package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	ServiceName string    `mapstructure:"service_name"`
	Env         string    `mapstructure:"env"`
	Port        string    `mapstructure:"port"`
	LogLevel    string    `mapstructure:"log_level"`
	Storage     Storage   `mapstructure:"storage"`
	Database    Database  `mapstructure:"database"`
	AWS         AWS       `mapstructure:"aws"`
	Redis       Redis     `mapstructure:"redis"`
	Gateway     Gateway   `mapstructure:"gateway"`
	Telemetry   Telemetry `mapstructure:"telemetry"`
	Recovery    Recovery  `mapstructure:"recovery"`
}

type Storage struct {
	Driver string `mapstructure:"driver"`
}

type Database struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
}

type AWS struct {
	Region      string `mapstructure:"region"`
	EndpointSNS string `mapstructure:"endpoint_sns"`
	EndpointSQS string `mapstructure:"endpoint_sqs"`
	SNSTopicArn string `mapstructure:"sns_topic_arn"`
	SQSQueueURL string `mapstructure:"sqs_queue_url"`
	SQSWorkers  int32  `mapstructure:"sqs_workers"`
}

type Redis struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	LockPrefix string        `mapstructure:"lock_prefix"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

type Gateway struct {
	BaseURL         string        `mapstructure:"base_url"`
	AccessToken     string        `mapstructure:"access_token"`
	NotificationURL string        `mapstructure:"notification_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ExpirationDays  int           `mapstructure:"expiration_days"`
	Breaker         Breaker       `mapstructure:"breaker"`
	ReadRetries     int           `mapstructure:"read_retries"`
	ReadRetryDelay  time.Duration `mapstructure:"read_retry_delay"`
}

type Breaker struct {
	MaxFailures  int           `mapstructure:"max_failures"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

type Telemetry struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Version      string `mapstructure:"version"`
}

type Recovery struct {
	Enabled    bool          `mapstructure:"enabled"`
	Schedule   string        `mapstructure:"schedule"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// ReadConfig loads <ENVIRONMENT>.json from this directory. Every key can be
// overridden with a SALES_ prefixed variable, e.g. SALES_GATEWAY_ACCESS_TOKEN.
func ReadConfig() (*Config, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return nil, errors.New("unable to get current file")
	}

	return readConfig(viper.New(), filepath.Dir(filename), getConfigName())
}

func readConfig(v *viper.Viper, configDir, name string) (*Config, error) {
	v.SetConfigName(name)
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("SALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func getConfigName() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		return "local"
	}
	return env
}

func setDefaults(v *viper.Viper) {
	// Service
	v.SetDefault("service_name", "sales-service")
	v.SetDefault("env", getEnv("ENV", "local"))
	v.SetDefault("port", getEnv("PORT", "8080"))
	v.SetDefault("log_level", "info")
	v.SetDefault("storage.driver", StorageDriverPostgres)

	// Database
	v.SetDefault("database.url", getEnv("DATABASE_URL", ""))
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "vehicle_sales")
	v.SetDefault("database.ssl_mode", "disable")

	// AWS
	v.SetDefault("aws.region", getEnv("AWS_DEFAULT_REGION", "us-east-1"))
	v.SetDefault("aws.endpoint_sns", getEnv("AWS_ENDPOINT_URL_SNS", ""))
	v.SetDefault("aws.endpoint_sqs", getEnv("AWS_ENDPOINT_URL_SQS", ""))
	v.SetDefault("aws.sns_topic_arn", getEnv("SNS_TOPIC_ARN", "arn:aws:sns:us-east-1:000000000000:sales-events"))
	v.SetDefault("aws.sqs_queue_url", getEnv("SQS_QUEUE_URL", "http://localhost:4566/000000000000/sales-events"))
	v.SetDefault("aws.sqs_workers", 4)

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", getEnv("REDIS_ADDR", "localhost:6379"))
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_prefix", "sales:")
	v.SetDefault("redis.lock_ttl", 30*time.Second)

	// Payment gateway
	v.SetDefault("gateway.base_url", "https://api.mercadopago.com")
	v.SetDefault("gateway.access_token", getEnv("MERCADOPAGO_ACCESS_TOKEN", ""))
	v.SetDefault("gateway.notification_url", "")
	v.SetDefault("gateway.timeout", 10*time.Second)
	v.SetDefault("gateway.expiration_days", 3)
	v.SetDefault("gateway.breaker.max_failures", 5)
	v.SetDefault("gateway.breaker.reset_timeout", 30*time.Second)
	v.SetDefault("gateway.read_retries", 3)
	v.SetDefault("gateway.read_retry_delay", 200*time.Millisecond)

	// Telemetry
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.otlp_endpoint", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"))
	v.SetDefault("telemetry.version", "1.0.0")

	// Saga recovery
	v.SetDefault("recovery.enabled", true)
	v.SetDefault("recovery.schedule", "*/5 * * * *")
	v.SetDefault("recovery.stale_after", 15*time.Minute)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return errors.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	return nil
}

// GetDatabaseURL constructs database URL from config
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
