package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageDriver != StorageDriverFile {
		t.Errorf("driver = %q", cfg.StorageDriver)
	}
	if cfg.DraftTTL != 24*time.Hour {
		t.Errorf("ttl = %v", cfg.DraftTTL)
	}
	if cfg.RetainVersions != 10 {
		t.Errorf("retain = %d", cfg.RetainVersions)
	}
	if cfg.HTTPAddress == "" || cfg.DataDir == "" || cfg.UploadsDir == "" {
		t.Errorf("missing defaults: %+v", cfg)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	v := NewViper()
	v.Set("storage.driver", "cassandra")

	_, err := Load(v)
	if err == nil || !strings.Contains(err.Error(), "storage.driver") {
		t.Fatalf("expected driver error, got %v", err)
	}
}

func TestLoadRequiresDatabasePathForSQLite(t *testing.T) {
	v := NewViper()
	v.Set("storage.driver", StorageDriverSQLite)
	v.Set("database.path", "  ")

	_, err := Load(v)
	if err == nil || !strings.Contains(err.Error(), "database.path") {
		t.Fatalf("expected database.path error, got %v", err)
	}
}

func TestLoadRejectsNonPositiveTTL(t *testing.T) {
	v := NewViper()
	v.Set("draft.ttl_hours", 0)

	_, err := Load(v)
	if err == nil || !strings.Contains(err.Error(), "ttl_hours") {
		t.Fatalf("expected ttl error, got %v", err)
	}
}
