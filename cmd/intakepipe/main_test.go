package main

import (
	"path/filepath"
	"testing"

	"github.com/BTreeMap/IntakePipe/internal/store"
)

func TestLoadEnvironmentConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("INTAKEPIPE_STATE_DIR", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("API_ADDR", "")

	config := loadEnvironmentConfig()
	if config.StateDir != DefaultStateDir {
		t.Errorf("StateDir = %q, want %q", config.StateDir, DefaultStateDir)
	}
	want := filepath.Join(DefaultStateDir, DefaultDBFileName)
	if config.DatabaseURL != want {
		t.Errorf("DatabaseURL = %q, want %q", config.DatabaseURL, want)
	}
}

func TestLoadEnvironmentConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example/intake")
	t.Setenv("INTAKEPIPE_STATE_DIR", "/tmp/intake-state")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	config := loadEnvironmentConfig()
	if config.DatabaseURL != "postgres://example/intake" {
		t.Errorf("DatabaseURL = %q", config.DatabaseURL)
	}
	if config.StateDir != "/tmp/intake-state" {
		t.Errorf("StateDir = %q", config.StateDir)
	}
	if config.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", config.RedisAddr)
	}
}

func TestOpenStoreFallsBackToMemory(t *testing.T) {
	st, err := openStore("")
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.InMemoryStore); !ok {
		t.Errorf("expected in-memory store, got %T", st)
	}
}

func TestOpenStoreSelectsSQLite(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "intake.db")
	st, err := openStore(dsn)
	if err != nil {
		t.Fatalf("openStore: %v", err)
	}
	defer st.Close()
	if _, ok := st.(*store.SQLiteStore); !ok {
		t.Errorf("expected SQLite store, got %T", st)
	}
}
