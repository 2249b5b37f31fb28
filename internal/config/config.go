package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort string
	ServerHost string

	// Storage: "memory" keeps everything in process, "postgres" snapshots
	// sessions and documents through gorm.
	StorageDriver string
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string

	// Event fan-out; empty RedisAddr disables publishing
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Worker pool between the hub and the event sink
	EventWorkers   int
	EventQueueSize int

	// Observability
	JaegerEndpoint string
	LogLevel       string
	LogFile        string

	Hub HubConfig
}

// HubConfig tunes the collaboration hub. Values can be overridden from a
// YAML file named by HUB_CONFIG_FILE.
type HubConfig struct {
	SendBuffer       int           `yaml:"send_buffer"`
	MaxMessageBytes  int64         `yaml:"max_message_bytes"`
	WriteWait        time.Duration `yaml:"write_wait"`
	PongWait         time.Duration `yaml:"pong_wait"`
	PingPeriod       time.Duration `yaml:"ping_period"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// DefaultHubConfig returns the tuning used when nothing is configured
func DefaultHubConfig() HubConfig {
	return HubConfig{
		SendBuffer:       256,
		MaxMessageBytes:  512 * 1024,
		WriteWait:        10 * time.Second,
		PongWait:         60 * time.Second,
		PingPeriod:       54 * time.Second,
		SnapshotInterval: 30 * time.Second,
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "localhost"),

		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "quantum_collab"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		EventWorkers:   getEnvInt("EVENT_WORKERS", 1),
		EventQueueSize: getEnvInt("EVENT_QUEUE_SIZE", 1024),

		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),

		Hub: DefaultHubConfig(),
	}

	if path := os.Getenv("HUB_CONFIG_FILE"); path != "" {
		if err := cfg.Hub.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile overlays hub settings from a YAML file. Keys missing from the
// file keep their current values.
func (h *HubConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read hub config: %w", err)
	}
	if err := yaml.Unmarshal(data, h); err != nil {
		return fmt.Errorf("failed to parse hub config %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.EventWorkers < 1 || c.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_WORKERS and EVENT_QUEUE_SIZE must be positive")
	}
	if c.Hub.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive")
	}
	if c.Hub.PingPeriod >= c.Hub.PongWait {
		return fmt.Errorf("ping_period (%s) must be shorter than pong_wait (%s)", c.Hub.PingPeriod, c.Hub.PongWait)
	}
	return nil
}

func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}
