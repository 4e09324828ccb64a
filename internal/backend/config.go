package backend

import (
	"fmt"

	"hhsfinance/internal/config"
	"hhsfinance/internal/gateway/googleauth"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.SyncBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.SyncBackend)
	}

	return Config{
		Type:   backendType,
		UserID: appConfig.SyncUserID,

		FirestoreProjectID:  appConfig.FirestoreProjectID,
		FirestoreCollection: appConfig.FirestoreCollection,

		PostgresURL:     appConfig.PostgresURL,
		PostgresChannel: appConfig.PostgresChannel,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		DriveFolderID: appConfig.GoogleDriveFolderID,
		DriveFileName: appConfig.GoogleDriveFileName,

		GCSBucket: appConfig.GCSBucket,
		GCSObject: appConfig.GCSObject,

		Google: googleauth.Credentials{
			ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
			ServiceAccountFile: appConfig.GoogleServiceAccountFile,
			OAuthClientJSON:    appConfig.GoogleOAuthClientJSON,
			OAuthClientFile:    appConfig.GoogleOAuthClientFile,
			OAuthTokenJSON:     appConfig.GoogleOAuthTokenJSON,
			OAuthTokenFile:     appConfig.GoogleOAuthTokenFile,
		},
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type != NoneBackend && c.UserID == "" {
		return fmt.Errorf("user id is required for %s backend", c.Type)
	}

	switch c.Type {
	case FirestoreBackend:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("Firestore project ID is required for firestore backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}
	case AMQPBackend:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp backend")
		}
	case DriveBackend:
		if c.DriveFileName == "" {
			return fmt.Errorf("Drive file name is required for drive backend")
		}
	case GCSBackend:
		if c.GCSBucket == "" || c.GCSObject == "" {
			return fmt.Errorf("bucket and object are required for gcs backend")
		}
	case NoneBackend, MemoryBackend:
		// nothing to check
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{
		NoneBackend, MemoryBackend, FirestoreBackend, PostgresBackend,
		AMQPBackend, DriveBackend, GCSBackend,
	}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
