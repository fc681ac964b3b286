package config

import (
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	mu sync.Mutex `yaml:"-"`

	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Web         WebConfig         `yaml:"web"`
	Schema      SchemaConfig      `yaml:"schema"`
	Batch       BatchConfig       `yaml:"batch"`
	Session     SessionConfig     `yaml:"session"`
	Attachments AttachmentsConfig `yaml:"attachments"`
	Messaging   MessagingConfig   `yaml:"messaging"`
	Users       []UserSeed        `yaml:"users"`
}

// DatabaseConfig selects the backing relational store.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig enables the batch list cache when Address is set.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// WebConfig defines the web server settings.
type WebConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	SessionSecret string `yaml:"session_secret"`
	CookieName    string `yaml:"cookie_name"`
}

// SchemaConfig points at the record field document and the fallback pipeline.
type SchemaConfig struct {
	FieldsPath      string   `yaml:"fields_path"`
	DefaultPipeline []string `yaml:"default_pipeline"`
}

// BatchConfig holds the batch status vocabulary.
type BatchConfig struct {
	Statuses        []string `yaml:"statuses"`
	InitialStatus   string   `yaml:"initial_status"`
	CompletedStatus string   `yaml:"completed_status"`
}

// SessionConfig bounds login sessions.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxPerUser int           `yaml:"max_per_user"`
}

// AttachmentsConfig controls record file uploads.
type AttachmentsConfig struct {
	Root                string   `yaml:"root"`
	AllowedMimePrefixes []string `yaml:"allowed_mime_prefixes"`
	AllowedExtensions   []string `yaml:"allowed_extensions"`
	MaxUploadMB         int64    `yaml:"max_upload_mb"`
}

// MessagingConfig defines the event publishing backend.
type MessagingConfig struct {
	Backend             string        `yaml:"backend"` // "", "mqtt" or "kafka"
	MQTT                MQTTConfig    `yaml:"mqtt"`
	Kafka               KafkaConfig   `yaml:"kafka"`
	EventsTopic         string        `yaml:"events_topic"`
	StationID           string        `yaml:"station_id"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
}

// MQTTConfig defines MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
}

// KafkaConfig defines Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// UserSeed is an account created on first start if it does not exist.
type UserSeed struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "batchtrack.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "batchtrack",
				User:     "batchtrack",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			TTL: 5 * time.Minute,
		},
		Web: WebConfig{
			Host:       "0.0.0.0",
			Port:       8090,
			CookieName: "batchtrack_session",
		},
		Schema: SchemaConfig{
			FieldsPath: "fields_config.json",
			DefaultPipeline: []string{
				"spin-coat", "pre-bake", "exposure", "post-bake", "develop", "etch", "strip",
			},
		},
		Batch: BatchConfig{
			Statuses:        []string{"active", "completed", "paused", "abnormal"},
			InitialStatus:   "active",
			CompletedStatus: "completed",
		},
		Session: SessionConfig{
			TTL:        24 * time.Hour,
			MaxPerUser: 5,
		},
		Attachments: AttachmentsConfig{
			Root:                "download",
			AllowedMimePrefixes: []string{"image/", "text/"},
			AllowedExtensions: []string{
				".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff",
				".txt", ".log", ".csv", ".json", ".md",
			},
			MaxUploadMB: 32,
		},
		Messaging: MessagingConfig{
			EventsTopic:         "batchtrack/events",
			StationID:           "batchtrack",
			OutboxDrainInterval: 5 * time.Second,
			MQTT: MQTTConfig{
				Broker:   "localhost",
				Port:     1883,
				ClientID: "batchtrack",
			},
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
			},
		},
		Users: []UserSeed{
			{Username: "admin", Password: "admin", Role: "admin"},
		},
	}
}

// Load reads a YAML config file. If the file doesn't exist, defaults are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to a YAML file.
func (c *Config) Save(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IsStatus reports whether s is in the configured batch status vocabulary.
func (b BatchConfig) IsStatus(s string) bool {
	for _, v := range b.Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// MessagingEnabled reports whether an event backend is configured.
func (c *Config) MessagingEnabled() bool {
	return c.Messaging.Backend == "mqtt" || c.Messaging.Backend == "kafka"
}

// Lock acquires the config mutex for multi-step mutations.
func (c *Config) Lock() { c.mu.Lock() }

// Unlock releases the config mutex.
func (c *Config) Unlock() { c.mu.Unlock() }
