package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Sync backends accepted by SYNC_BACKEND.
const (
	BackendNone      = "none"
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendAMQP      = "amqp"
	BackendDrive     = "drive"
	BackendGCS       = "gcs"
)

// ValidBackends lists every accepted SYNC_BACKEND value.
var ValidBackends = []string{
	BackendNone, BackendMemory, BackendFirestore, BackendPostgres,
	BackendAMQP, BackendDrive, BackendGCS,
}

type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Logging
	LogLevel string

	// Local store
	SQLiteDBPath string
	ArchiveLimit int

	// Sync
	SyncBackend       string
	SyncUserID        string
	StartOnline       bool
	ReconnectInterval time.Duration

	// Firestore
	FirestoreProjectID  string
	FirestoreCollection string

	// Postgres LISTEN/NOTIFY
	PostgresURL     string
	PostgresChannel string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Drive
	GoogleDriveFolderID string
	GoogleDriveFileName string

	// Cloud Storage
	GCSBucket string
	GCSObject string

	// Google credentials, shared by drive, gcs and firestore
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenJSON     string

	// Access
	AdminPassphraseHash string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hhsfinance.db"),
		ArchiveLimit: getEnvInt("ARCHIVE_LIMIT", 20),

		SyncBackend: getEnv("SYNC_BACKEND", BackendNone),
		SyncUserID:  getEnv("SYNC_USER_ID", "admin_default"),
		StartOnline: getEnvBool("START_ONLINE", true),

		ReconnectInterval: getEnvDuration("RECONNECT_INTERVAL", 30*time.Second),

		FirestoreProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
		FirestoreCollection: getEnv("FIRESTORE_COLLECTION", "finance"),

		PostgresURL:     getEnv("POSTGRES_URL", ""),
		PostgresChannel: getEnv("POSTGRES_CHANNEL", "finance_snapshots"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hhsfinance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "hhsfinance_snapshots"),

		GoogleDriveFolderID: getEnv("GOOGLE_DRIVE_FOLDER_ID", ""),
		GoogleDriveFileName: getEnv("GOOGLE_DRIVE_FILE_NAME", "hhsfinance_sync.json"),

		GCSBucket: getEnv("GCS_BUCKET", ""),
		GCSObject: getEnv("GCS_OBJECT", "hhsfinance/sync.json"),

		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:     getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		AdminPassphraseHash: getEnv("ADMIN_PASSPHRASE_HASH", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.ArchiveLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid archive limit %d: must be at least 1", c.ArchiveLimit))
	}

	if !isValidBackend(c.SyncBackend) {
		errors = append(errors, fmt.Sprintf("invalid sync backend '%s': must be one of %v", c.SyncBackend, ValidBackends))
	}
	if c.SyncBackend != BackendNone && strings.TrimSpace(c.SyncUserID) == "" {
		errors = append(errors, "sync user id cannot be empty when a sync backend is configured")
	}

	switch c.SyncBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			errors = append(errors, "FIRESTORE_PROJECT_ID is required when using firestore backend")
		}
		if c.FirestoreCollection == "" {
			errors = append(errors, "FIRESTORE_COLLECTION cannot be empty when using firestore backend")
		}
		errors = append(errors, c.validateGoogleCredentials()...)

	case BackendPostgres:
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
		if c.PostgresChannel == "" {
			errors = append(errors, "POSTGRES_CHANNEL cannot be empty when using postgres backend")
		}

	case BackendAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required when using amqp backend")
		} else if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when using amqp backend")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when using amqp backend")
		}

	case BackendDrive:
		if c.GoogleDriveFileName == "" {
			errors = append(errors, "GOOGLE_DRIVE_FILE_NAME cannot be empty when using drive backend")
		}
		errors = append(errors, c.validateGoogleCredentials()...)

	case BackendGCS:
		if c.GCSBucket == "" {
			errors = append(errors, "GCS_BUCKET is required when using gcs backend")
		}
		if c.GCSObject == "" {
			errors = append(errors, "GCS_OBJECT cannot be empty when using gcs backend")
		}
		errors = append(errors, c.validateGoogleCredentials()...)
	}

	if c.ReconnectInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconnect interval %v: must be at least 1 second", c.ReconnectInterval))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// validateGoogleCredentials checks referenced credential files exist and
// that OAuth client and token come as a pair. No credentials at all means
// Application Default Credentials.
func (c *Config) validateGoogleCredentials() []string {
	var errors []string

	for _, f := range []struct{ name, path string }{
		{"service account", c.GoogleServiceAccountFile},
		{"OAuth client", c.GoogleOAuthClientFile},
		{"OAuth token", c.GoogleOAuthTokenFile},
	} {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google %s file does not exist: %s", f.name, f.path))
		}
	}

	if c.GoogleServiceAccountFile != "" || c.GoogleServiceAccountJSON != "" {
		return errors
	}
	hasClient := c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != ""
	hasToken := c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != ""
	if hasClient && !hasToken {
		errors = append(errors, "either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided with an OAuth client")
	}
	if hasToken && !hasClient {
		errors = append(errors, "either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided with an OAuth token")
	}
	return errors
}

func isValidBackend(name string) bool {
	for _, b := range ValidBackends {
		if b == name {
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
