package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix             = "DEALROOM"
	defaultHTTPAddress    = "0.0.0.0:8080"
	defaultStorageDriver  = StorageDriverFile
	defaultDataDir        = "data"
	defaultUploadsDir     = "uploads/deal-room-images"
	defaultDatabasePath   = "dealroom.db"
	defaultDraftTTLHours  = 24
	defaultRetainVersions = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
)

// Storage driver selectors.
const (
	StorageDriverFile   = "file"
	StorageDriverSQLite = "sqlite"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress    string
	StorageDriver  string
	DataDir        string
	UploadsDir     string
	DatabasePath   string
	DraftTTL       time.Duration
	RetainVersions int
	LogLevel       string
	LogFormat      string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper
// instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("storage.driver", defaultStorageDriver)
	configViper.SetDefault("storage.data_dir", defaultDataDir)
	configViper.SetDefault("storage.uploads_dir", defaultUploadsDir)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("draft.ttl_hours", defaultDraftTTLHours)
	configViper.SetDefault("versions.retain", defaultRetainVersions)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		StorageDriver:  configViper.GetString("storage.driver"),
		DataDir:        configViper.GetString("storage.data_dir"),
		UploadsDir:     configViper.GetString("storage.uploads_dir"),
		DatabasePath:   configViper.GetString("database.path"),
		DraftTTL:       time.Duration(configViper.GetInt("draft.ttl_hours")) * time.Hour,
		RetainVersions: configViper.GetInt("versions.retain"),
		LogLevel:       configViper.GetString("log.level"),
		LogFormat:      configViper.GetString("log.format"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageDriver {
	case StorageDriverFile:
		if strings.TrimSpace(c.DataDir) == "" {
			return fmt.Errorf("storage.data_dir is required for the file driver")
		}
	case StorageDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q", StorageDriverFile, StorageDriverSQLite)
	}
	if strings.TrimSpace(c.UploadsDir) == "" {
		return fmt.Errorf("storage.uploads_dir is required")
	}
	if c.DraftTTL <= 0 {
		return fmt.Errorf("draft.ttl_hours must be positive")
	}
	if c.RetainVersions <= 0 {
		return fmt.Errorf("versions.retain must be positive")
	}
	return nil
}
