package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			log.Printf("config: load %s: %v", f, err)
		}
	}
}

// ApplyEnv overrides selected settings from BATCHTRACK_* environment variables.
func (c *Config) ApplyEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()

	setString(&c.Database.Driver, "BATCHTRACK_DB_DRIVER")
	setString(&c.Database.SQLite.Path, "BATCHTRACK_SQLITE_PATH")
	setString(&c.Database.Postgres.Host, "BATCHTRACK_PG_HOST")
	setInt(&c.Database.Postgres.Port, "BATCHTRACK_PG_PORT")
	setString(&c.Database.Postgres.Database, "BATCHTRACK_PG_DATABASE")
	setString(&c.Database.Postgres.User, "BATCHTRACK_PG_USER")
	setString(&c.Database.Postgres.Password, "BATCHTRACK_PG_PASSWORD")
	setString(&c.Redis.Address, "BATCHTRACK_REDIS_ADDRESS")
	setString(&c.Redis.Password, "BATCHTRACK_REDIS_PASSWORD")
	setInt(&c.Web.Port, "BATCHTRACK_WEB_PORT")
	setString(&c.Web.SessionSecret, "BATCHTRACK_SESSION_SECRET")
	setString(&c.Schema.FieldsPath, "BATCHTRACK_FIELDS_PATH")
	setString(&c.Messaging.Backend, "BATCHTRACK_MESSAGING_BACKEND")
	if v := os.Getenv("BATCHTRACK_KAFKA_BROKERS"); v != "" {
		c.Messaging.Kafka.Brokers = strings.Split(v, ",")
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("config: %s=%q is not an integer", key, v)
		return
	}
	*dst = n
}
