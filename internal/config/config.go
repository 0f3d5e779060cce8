package config

import (
	"os"
	"strconv"
	"strings"

	"feedhub/internal/apperrors"
)

// Config holds all application configuration
type Config struct {
	Port     string
	MongoURI string
	RedisURL string

	// External collaborator services
	AuthURL      string
	WorkspaceURL string
	GroupsURL    string
	JobsURL      string
	CatalogURL   string

	// Feed behavior
	GlobalFeedID     string // id of the well-known global broadcast feed
	LifespanDays     int    // default notification lifetime
	DefaultNoteCount int    // default page size for feed queries

	// Kafka ingress (listener binary)
	KafkaBrokers []string
	KafkaTopics  []string
	KafkaGroupID string

	// Verb/level catalog extension file (optional)
	CatalogFile string

	// Locally-signed service tokens, used when no auth service is reachable
	ServiceJWTSecret string
	Debug            bool

	// User IDs with feeds-admin privileges (comma-separated in env)
	AdminUserIDs []string

	// Retention sweep schedule (standard 5-field cron expression)
	SweepCron     string
	RetentionDays int
	SweepEnabled  bool
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "5000"),
		MongoURI: getEnv("MONGODB_URI", ""),
		RedisURL: getEnv("REDIS_URL", ""),

		AuthURL:      getEnv("AUTH_URL", ""),
		WorkspaceURL: getEnv("WORKSPACE_URL", ""),
		GroupsURL:    getEnv("GROUPS_URL", ""),
		JobsURL:      getEnv("JOBS_URL", ""),
		CatalogURL:   getEnv("CATALOG_URL", ""),

		GlobalFeedID:     getEnv("GLOBAL_FEED_ID", "global"),
		LifespanDays:     getIntEnv("LIFESPAN_DAYS", 30),
		DefaultNoteCount: getIntEnv("DEFAULT_NOTE_COUNT", 100),

		KafkaBrokers: splitEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopics:  splitEnv("KAFKA_TOPICS", "feeds"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "feedhub"),

		CatalogFile: getEnv("CATALOG_FILE", ""),

		ServiceJWTSecret: getEnv("SERVICE_JWT_SECRET", ""),
		Debug:            getBoolEnv("DEBUG", false),

		AdminUserIDs: splitEnv("ADMIN_USER_IDS", ""),

		SweepCron:     getEnv("SWEEP_CRON", "0 3 * * *"),
		RetentionDays: getIntEnv("RETENTION_DAYS", 90),
		SweepEnabled:  getBoolEnv("SWEEP_ENABLED", true),
	}
}

// Validate checks the invariants config consumers rely on.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return &apperrors.ConfigError{Msg: "MONGODB_URI is required"}
	}
	if c.LifespanDays <= 0 {
		return &apperrors.ConfigError{Msg: "LIFESPAN_DAYS must be an int > 0"}
	}
	if c.DefaultNoteCount <= 0 {
		return &apperrors.ConfigError{Msg: "DEFAULT_NOTE_COUNT must be an int > 0"}
	}
	if c.GlobalFeedID == "" {
		return &apperrors.ConfigError{Msg: "GLOBAL_FEED_ID must not be empty"}
	}
	return nil
}

// GlobalFeed returns the Entity the global broadcast feed hangs off of.
func (c *Config) GlobalFeed() string {
	return c.GlobalFeedID
}

// IsAdmin reports whether the user id carries feeds-admin privileges.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
