package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// StorageDriverMemory хранит всё в памяти процесса.
	StorageDriverMemory = "memory"
	// StorageDriverMongo хранит каталог, заказы, корзины и платежи в MongoDB.
	StorageDriverMongo = "mongo"

	// EnvPrefix - префикс переменных окружения.
	EnvPrefix = "PHARMACY"
	// EnvConfigFile - путь к необязательному файлу конфигурации.
	EnvConfigFile = "PHARMACY_CONFIG_FILE"

	environmentProduction = "production"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string `mapstructure:"http_addr"`
	GRPCAddr    string `mapstructure:"grpc_addr"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`

	StorageDriver string `mapstructure:"storage_driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	// SeedFile - JSON/YAML с users и products для хранилища memory.
	SeedFile string `mapstructure:"seed_file"`
	// PostgresDSN включает журналы idempotency, outbox и timeline в PostgreSQL.
	PostgresDSN         string `mapstructure:"postgres_dsn"`
	PostgresAutoMigrate bool   `mapstructure:"postgres_auto_migrate"`

	KafkaBrokers  []string `mapstructure:"kafka_brokers"`
	KafkaTopic    string   `mapstructure:"kafka_topic"`
	KafkaDLQTopic string   `mapstructure:"kafka_dlq_topic"`

	JWTSecret             string        `mapstructure:"jwt_secret"`
	PaymentCallbackSecret string        `mapstructure:"payment_callback_secret"`
	PaymentDelay          time.Duration `mapstructure:"payment_delay"`
	PaymentSuccessRate    float64       `mapstructure:"payment_success_rate"`

	UploadDir      string        `mapstructure:"upload_dir"`
	UploadsPath    string        `mapstructure:"uploads_path"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`

	OutboxPollInterval          time.Duration `mapstructure:"outbox_poll_interval"`
	OutboxBatchSize             int           `mapstructure:"outbox_batch_size"`
	OutboxMaxAttempts           int           `mapstructure:"outbox_max_attempts"`
	OutboxRetryDelay            time.Duration `mapstructure:"outbox_retry_delay"`
	IdempotencyCleanupInterval  time.Duration `mapstructure:"idempotency_cleanup_interval"`
	IdempotencyCleanupBatchSize int           `mapstructure:"idempotency_cleanup_batch_size"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		Environment: "development",
		LogLevel:    "info",
		LogFormat:   "text",

		StorageDriver:       StorageDriverMemory,
		MongoURI:            "mongodb://localhost:27017",
		MongoDatabase:       "pharmacy",
		PostgresAutoMigrate: true,

		KafkaTopic:    "pharmacy.order.events",
		KafkaDLQTopic: "pharmacy.dlq",

		PaymentDelay:       2 * time.Second,
		PaymentSuccessRate: 0.9,

		UploadDir:      "./uploads",
		UploadsPath:    "/uploads",
		RequestTimeout: 30 * time.Second,
		IdempotencyTTL: 24 * time.Hour,

		OutboxPollInterval:          time.Second,
		OutboxBatchSize:             100,
		OutboxMaxAttempts:           3,
		OutboxRetryDelay:            50 * time.Millisecond,
		IdempotencyCleanupInterval:  10 * time.Minute,
		IdempotencyCleanupBatchSize: 500,

		ShutdownTimeout: 5 * time.Second,
	}
}

// LoadConfig читает конфигурацию: значения по умолчанию, затем файл из
// PHARMACY_CONFIG_FILE, затем переменные окружения PHARMACY_*.
func LoadConfig() (Config, error) {
	return loadConfig(viper.New(), os.Getenv(EnvConfigFile))
}

func loadConfig(v *viper.Viper, configFile string) (Config, error) {
	defaults := DefaultConfig()
	setDefaults(v, defaults)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile = strings.TrimSpace(configFile); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("grpc_addr", d.GRPCAddr)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("environment", d.Environment)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("storage_driver", d.StorageDriver)
	v.SetDefault("mongo_uri", d.MongoURI)
	v.SetDefault("mongo_database", d.MongoDatabase)
	v.SetDefault("seed_file", d.SeedFile)
	v.SetDefault("postgres_dsn", d.PostgresDSN)
	v.SetDefault("postgres_auto_migrate", d.PostgresAutoMigrate)
	v.SetDefault("kafka_brokers", append([]string{}, d.KafkaBrokers...))
	v.SetDefault("kafka_topic", d.KafkaTopic)
	v.SetDefault("kafka_dlq_topic", d.KafkaDLQTopic)
	v.SetDefault("jwt_secret", d.JWTSecret)
	v.SetDefault("payment_callback_secret", d.PaymentCallbackSecret)
	v.SetDefault("payment_delay", d.PaymentDelay)
	v.SetDefault("payment_success_rate", d.PaymentSuccessRate)
	v.SetDefault("upload_dir", d.UploadDir)
	v.SetDefault("uploads_path", d.UploadsPath)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("idempotency_ttl", d.IdempotencyTTL)
	v.SetDefault("outbox_poll_interval", d.OutboxPollInterval)
	v.SetDefault("outbox_batch_size", d.OutboxBatchSize)
	v.SetDefault("outbox_max_attempts", d.OutboxMaxAttempts)
	v.SetDefault("outbox_retry_delay", d.OutboxRetryDelay)
	v.SetDefault("idempotency_cleanup_interval", d.IdempotencyCleanupInterval)
	v.SetDefault("idempotency_cleanup_batch_size", d.IdempotencyCleanupBatchSize)
	v.SetDefault("shutdown_timeout", d.ShutdownTimeout)
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.Environment = strings.ToLower(strings.TrimSpace(c.Environment))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.MongoURI = strings.TrimSpace(c.MongoURI)
	c.SeedFile = strings.TrimSpace(c.SeedFile)

	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, raw := range c.KafkaBrokers {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	c.KafkaBrokers = brokers
}

// IsProduction сообщает, запущен ли сервис в production.
func (c Config) IsProduction() bool {
	return c.Environment == environmentProduction
}

// Validate проверяет обязательные настройки.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverMongo:
		if c.SeedFile != "" {
			errs = append(errs, errors.New("seed_file is supported only for memory storage"))
		}
		if c.MongoURI == "" {
			errs = append(errs, errors.New("mongo_uri is required for mongo storage"))
		}
		if strings.TrimSpace(c.MongoDatabase) == "" {
			errs = append(errs, errors.New("mongo_database is required for mongo storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage_driver %q (use memory|mongo)", c.StorageDriver))
	}
	if c.PaymentSuccessRate < 0 || c.PaymentSuccessRate > 1 {
		errs = append(errs, fmt.Errorf("payment_success_rate must be within [0, 1], got %v", c.PaymentSuccessRate))
	}
	if c.IsProduction() && strings.TrimSpace(c.PaymentCallbackSecret) == "" {
		errs = append(errs, errors.New("payment_callback_secret is required in production"))
	}
	return errors.Join(errs...)
}

// SetupLogger настраивает формат и уровень логирования logrus.
func SetupLogger(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log_format %q (use text|json)", cfg.LogFormat)
	}

	level := log.InfoLevel
	if raw := strings.TrimSpace(cfg.LogLevel); raw != "" {
		parsed, err := log.ParseLevel(raw)
		if err != nil {
			return fmt.Errorf("parse log_level: %w", err)
		}
		level = parsed
	}
	log.SetLevel(level)
	return nil
}
