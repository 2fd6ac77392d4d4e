// Package config centralises the environment-driven settings of the
// dispatch service and CLI. Values are read once at startup; commands check
// the endpoints they actually use and fail fast on what is missing.
package config

import (
	"fmt"
	"os"
)

// Config holds every external endpoint the service talks to.
type Config struct {
	DatabaseURL string

	AMQPURL        string
	Exchange       string
	TaskQueue      string
	ResultQueue    string
	ConnectionName string

	PermsHost   string
	PermsTenant string
}

// Load reads the configuration from the environment. Endpoints without a
// sensible default (database, broker) may come back empty; callers assert
// the ones they need via RequireDatabase and RequireBroker.
func Load() Config {
	return Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		Exchange:       envOr("AMQP_EXCHANGE_NAME", "gradeflow"),
		TaskQueue:      envOr("AMQP_TASK_QUEUE_NAME", "gradeflow.tasks"),
		ResultQueue:    envOr("AMQP_RESULT_QUEUE_NAME", "gradeflow.results"),
		ConnectionName: envOr("AMQP_CONN_NAME", "gradeflow-api"),
		PermsHost:      envOr("PERMS_HOST", "http://localhost:3476"),
		PermsTenant:    envOr("PERMS_TENANT_ID", "t1"),
	}
}

// RequireDatabase errors unless DATABASE_URL was set.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	return nil
}

// RequireBroker errors unless AMQP_URL was set.
func (c Config) RequireBroker() error {
	if c.AMQPURL == "" {
		return fmt.Errorf("AMQP_URL is not set")
	}
	return nil
}

func envOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return fallback
}
