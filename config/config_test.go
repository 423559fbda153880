package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "partstore.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TokenIdle != 30*time.Second {
		t.Fatalf("default token idle = %v", cfg.Cache.TokenIdle)
	}
	if cfg.Backend.Engine != "badger" {
		t.Fatalf("default engine = %q", cfg.Backend.Engine)
	}
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
cache:
  tokenidle: 2m
backend:
  engine: badger
  badger:
    dir: /var/lib/parts
`)
	cfg, err := Load(WithFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TokenIdle != 2*time.Minute {
		t.Fatalf("token idle = %v, want 2m", cfg.Cache.TokenIdle)
	}
	if cfg.Backend.Badger.Dir != "/var/lib/parts" {
		t.Fatalf("badger dir = %q", cfg.Backend.Badger.Dir)
	}
	// Untouched values keep their defaults.
	if cfg.Cache.DataIdle != 30*time.Second {
		t.Fatalf("data idle = %v, want default", cfg.Cache.DataIdle)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, `
backend:
  engine: badger
  badger:
    dir: /from/file
`)
	t.Setenv("PARTSTORE_BACKEND_BADGER_DIR", "/from/env")

	cfg, err := Load(WithFile(path))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Badger.Dir != "/from/env" {
		t.Fatalf("badger dir = %q, want env to win", cfg.Backend.Badger.Dir)
	}
}

func TestRedisEngineRequiresAddr(t *testing.T) {
	t.Setenv("PARTSTORE_BACKEND_ENGINE", "redis")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "redis.addr") {
		t.Fatalf("Load: %v, want redis.addr validation error", err)
	}

	t.Setenv("PARTSTORE_BACKEND_REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with addr: %v", err)
	}
	if cfg.Backend.Redis.Prefix != "partstore" {
		t.Fatalf("redis prefix default = %q", cfg.Backend.Redis.Prefix)
	}
}

func TestUnknownEngineRejected(t *testing.T) {
	t.Setenv("PARTSTORE_BACKEND_ENGINE", "rocksdb")
	if _, err := Load(); err == nil {
		t.Fatalf("unknown engine must be rejected")
	}
}

func TestBlockValidation(t *testing.T) {
	t.Setenv("PARTSTORE_BLOCK_STRATEGY", "lru")
	if _, err := Load(); err == nil {
		t.Fatalf("block strategy without capacity must be rejected")
	}

	t.Setenv("PARTSTORE_BLOCK_CAPACITY", "1024")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Block.Strategy != "lru" || cfg.Block.Capacity != 1024 {
		t.Fatalf("block config = %+v", cfg.Block)
	}
}
