package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Store     Store     `yaml:"store"`
	DB        *Postgres `yaml:"database"`
	Mongo     *Mongo    `yaml:"mongo"`
	RMQ       *RabbitMQ `yaml:"rabbitmq"`
	Broadcast Broadcast `yaml:"broadcast"`
	Auth      Auth      `yaml:"auth"`
	Catalog   Catalog   `yaml:"catalog"`
	Stats     Stats     `yaml:"stats"`
	Log       Log       `yaml:"log"`
}

type Store struct {
	// Driver is one of memory, postgres, mongo.
	Driver    string        `yaml:"driver"`
	OpTimeout time.Duration `yaml:"op_timeout"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	MaxConns int32  `yaml:"max_conns"`
}

type Mongo struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	VHost    string `yaml:"vhost"`
}

type Broadcast struct {
	// Driver is local or rabbitmq.
	Driver           string `yaml:"driver"`
	SubscriberBuffer int    `yaml:"subscriber_buffer"`
}

type Auth struct {
	JWTSecret      string `yaml:"jwt_secret"`
	AllowAnonymous bool   `yaml:"allow_anonymous"`
}

type Catalog struct {
	// CacheTTL bounds how stale a menu price may be. Unset, see MenuCacheTTL.
	CacheTTL *time.Duration `yaml:"cache_ttl"`
}

type Stats struct {
	Timezone string `yaml:"timezone"`
}

type Log struct {
	Level string `yaml:"level"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"

	BroadcastLocal    = "local"
	BroadcastRabbitMQ = "rabbitmq"

	defaultMenuCacheTTL = 30 * time.Second
)

// LoadConfig reads the yaml file, then applies .env and environment overrides.
// A missing file is not an error: defaults plus environment are used.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
		// an empty section decodes to nil
		cfg.fillSections()
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Store: Store{Driver: DriverMemory, OpTimeout: 5 * time.Second},
		DB: &Postgres{
			Host:     "localhost",
			Port:     "5432",
			User:     "restaurant",
			Password: "restaurant",
			Database: "restaurant_db",
			MaxConns: 10,
		},
		Mongo: &Mongo{URI: "mongodb://localhost:27017", Database: "restaurant"},
		RMQ: &RabbitMQ{
			User:     "guest",
			Password: "guest",
			Host:     "localhost",
			Port:     "5672",
		},
		Broadcast: Broadcast{Driver: BroadcastLocal, SubscriberBuffer: 64},
		Auth:      Auth{AllowAnonymous: true},
		Stats:     Stats{Timezone: "UTC"},
		Log:       Log{Level: "info"},
	}
}

func (c *Config) fillSections() {
	d := Default()
	if c.DB == nil {
		c.DB = d.DB
	}
	if c.Mongo == nil {
		c.Mongo = d.Mongo
	}
	if c.RMQ == nil {
		c.RMQ = d.RMQ
	}
}

// MenuCacheTTL is the configured cache_ttl, or when unset 30s with the local
// broadcast driver and 0 with rabbitmq, where another instance may edit a
// price at any time.
func (c *Config) MenuCacheTTL() time.Duration {
	if c.Catalog.CacheTTL != nil {
		return *c.Catalog.CacheTTL
	}
	if c.Broadcast.Driver == BroadcastRabbitMQ {
		return 0
	}
	return defaultMenuCacheTTL
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverMongo:
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}
	switch c.Broadcast.Driver {
	case BroadcastLocal, BroadcastRabbitMQ:
	default:
		return fmt.Errorf("unknown broadcast driver: %q", c.Broadcast.Driver)
	}
	if c.Store.OpTimeout <= 0 {
		return fmt.Errorf("store op_timeout must be positive: %s", c.Store.OpTimeout)
	}
	if c.Broadcast.SubscriberBuffer <= 0 {
		return fmt.Errorf("broadcast subscriber_buffer must be positive: %d", c.Broadcast.SubscriberBuffer)
	}
	if c.Catalog.CacheTTL != nil && *c.Catalog.CacheTTL < 0 {
		return fmt.Errorf("catalog cache_ttl must not be negative: %s", *c.Catalog.CacheTTL)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth jwt_secret is required")
	}
	if _, err := time.LoadLocation(c.Stats.Timezone); err != nil {
		return fmt.Errorf("stats timezone: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)

	cfg.DB.Host = getEnv("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnv("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = getEnv("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = getEnv("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Database = getEnv("POSTGRES_DBNAME", cfg.DB.Database)

	cfg.Mongo.URI = getEnv("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", cfg.Mongo.Database)

	cfg.RMQ.Host = getEnv("RABBITMQ_HOST", cfg.RMQ.Host)
	cfg.RMQ.Port = getEnv("RABBITMQ_PORT", cfg.RMQ.Port)
	cfg.RMQ.User = getEnv("RABBITMQ_USER", cfg.RMQ.User)
	cfg.RMQ.Password = getEnv("RABBITMQ_PASSWORD", cfg.RMQ.Password)
	cfg.RMQ.VHost = getEnv("RABBITMQ_VHOST", cfg.RMQ.VHost)

	cfg.Broadcast.Driver = getEnv("BROADCAST_DRIVER", cfg.Broadcast.Driver)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	if v, err := strconv.ParseBool(os.Getenv("ALLOW_ANONYMOUS")); err == nil {
		cfg.Auth.AllowAnonymous = v
	}
	cfg.Stats.Timezone = getEnv("STATS_TIMEZONE", cfg.Stats.Timezone)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
