// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	LevelDB  LevelDBConfig  `yaml:"leveldb"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	URL string `yaml:"-"`
}

// RabbitMQConfig holds RabbitMQ configuration
type RabbitMQConfig struct {
	URL                string `yaml:"url"`
	Exchange           string `yaml:"exchange"`
	NotificationsQueue string `yaml:"notificationsQueue"`
	EventsQueue        string `yaml:"eventsQueue"`
	ExchangeType       string `yaml:"exchangeType"`
}

// LevelDBConfig holds LevelDB configuration
type LevelDBConfig struct {
	Path string `yaml:"path"`
}

// SMTPConfig holds the mail transport configuration
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"-"`
	Password string `yaml:"-"`
	From     string `yaml:"from"`
}

// WorkerConfig holds notification dispatcher worker configuration
type WorkerConfig struct {
	MaxWorkers      int `yaml:"maxWorkers"`
	SendTimeout     int `yaml:"sendTimeout"`
	ShutdownTimeout int `yaml:"shutdownTimeout"`
}

// Default configuration values
const (
	DefaultServerPort          = "8080"
	DefaultServerReadTimeout   = 30
	DefaultServerWriteTimeout  = 30
	DefaultMaxWorkers          = 10
	DefaultSendTimeout         = 15
	DefaultShutdownTimeout     = 30
	DefaultLevelDBPath         = "./data/leveldb"
	DefaultRabbitMQExchange    = "annolab"
	DefaultNotificationsQueue  = "annolab.notifications"
	DefaultEventsQueue         = "annolab.events"
	DefaultExchangeType        = "direct"
	DefaultSMTPPort            = 587
)

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// Load creates a new configuration from the YAML file and environment variables
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Check mandatory environment variables
	postgresURL := os.Getenv("ANNOLAB_POSTGRES_URL")
	if postgresURL == "" {
		return nil, fmt.Errorf("ANNOLAB_POSTGRES_URL environment variable is required")
	}

	rabbitmqURL := os.Getenv("ANNOLAB_RABBITMQ_URL")
	if rabbitmqURL == "" {
		return nil, fmt.Errorf("ANNOLAB_RABBITMQ_URL environment variable is required")
	}

	// Override/set configuration with environment variables and defaults
	config.Server = ServerConfig{
		Port:         getEnv("ANNOLAB_SERVER_PORT", DefaultServerPort),
		ReadTimeout:  getEnvInt("ANNOLAB_SERVER_READ_TIMEOUT", DefaultServerReadTimeout),
		WriteTimeout: getEnvInt("ANNOLAB_SERVER_WRITE_TIMEOUT", DefaultServerWriteTimeout),
	}

	config.Postgres = PostgresConfig{
		URL: postgresURL,
	}

	config.RabbitMQ = RabbitMQConfig{
		URL:                rabbitmqURL,
		Exchange:           getEnv("ANNOLAB_RABBITMQ_EXCHANGE", DefaultRabbitMQExchange),
		NotificationsQueue: getEnv("ANNOLAB_RABBITMQ_NOTIFICATIONS_QUEUE", DefaultNotificationsQueue),
		EventsQueue:        getEnv("ANNOLAB_RABBITMQ_EVENTS_QUEUE", DefaultEventsQueue),
		ExchangeType:       getEnv("ANNOLAB_RABBITMQ_EXCHANGE_TYPE", DefaultExchangeType),
	}

	config.LevelDB = LevelDBConfig{
		Path: getEnv("ANNOLAB_LEVELDB_PATH", DefaultLevelDBPath),
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("ANNOLAB_SMTP_HOST", config.SMTP.Host),
		Port:     getEnvInt("ANNOLAB_SMTP_PORT", defaultSMTPPort(config.SMTP.Port)),
		Username: os.Getenv("ANNOLAB_SMTP_USER"),
		Password: os.Getenv("ANNOLAB_SMTP_PASSWORD"),
		From:     getEnv("ANNOLAB_SMTP_FROM", config.SMTP.From),
	}

	config.Worker = WorkerConfig{
		MaxWorkers:      getEnvInt("ANNOLAB_WORKER_MAX_WORKERS", DefaultMaxWorkers),
		SendTimeout:     getEnvInt("ANNOLAB_WORKER_SEND_TIMEOUT", DefaultSendTimeout),
		ShutdownTimeout: getEnvInt("ANNOLAB_WORKER_SHUTDOWN_TIMEOUT", DefaultShutdownTimeout),
	}

	return &config, nil
}

func defaultSMTPPort(fromFile int) int {
	if fromFile > 0 {
		return fromFile
	}
	return DefaultSMTPPort
}
