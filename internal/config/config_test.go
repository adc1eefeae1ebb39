package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PluginID != DefaultPluginID {
		t.Fatalf("plugin id = %q", cfg.PluginID)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Fatalf("request timeout = %s", cfg.RequestTimeout)
	}
	if cfg.StorageType != "memory" {
		t.Fatalf("storage type = %q", cfg.StorageType)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SITE_URL", "https://chat.example.com")
	t.Setenv("ACTOR_ID", "  u1 ")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SiteURL != "https://chat.example.com" {
		t.Fatalf("site url = %q", cfg.SiteURL)
	}
	if cfg.ActorID != "u1" {
		t.Fatalf("actor id = %q", cfg.ActorID)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Fatalf("request timeout = %s", cfg.RequestTimeout)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero timeout")
	}

	t.Setenv("REQUEST_TIMEOUT_SECONDS", "5")
	t.Setenv("STORAGE_TYPE", "etcd")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported storage type")
	}

	t.Setenv("STORAGE_TYPE", "redis")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for redis without redis_url")
	}
}

func TestStoragePathFollowsStorageType(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StoragePath() != "redis://localhost:6379/0" {
		t.Fatalf("storage path = %q", cfg.StoragePath())
	}

	cfg.StorageType = "bbolt"
	if cfg.StoragePath() != cfg.BBoltPath {
		t.Fatalf("bbolt storage path = %q", cfg.StoragePath())
	}
}
