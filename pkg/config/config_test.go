package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "dev" {
		t.Fatalf("expected App.Env to be dev, got %q", cfg.App.Env)
	}
	if cfg.Commerce.BaseURL != "https://admin.refabry.com/api" {
		t.Fatalf("unexpected commerce base url %q", cfg.Commerce.BaseURL)
	}
	if cfg.Commerce.Timeout != 10*time.Second {
		t.Fatalf("expected 10s commerce timeout, got %v", cfg.Commerce.Timeout)
	}
	if cfg.Pricing.LowTier != "70" || cfg.Pricing.HighTier != "150" {
		t.Fatalf("unexpected delivery tiers %q/%q", cfg.Pricing.LowTier, cfg.Pricing.HighTier)
	}
	if cfg.Storage.Driver != StorageDriverMemory || cfg.Storage.CartKey != "cartItems" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RedisDriverRequiresEndpoint(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, StorageDriverRedis)

	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without url to fail")
	}

	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Redis.Enabled() {
		t.Fatal("expected redis to be enabled")
	}
}

func TestLoad_SQLDriverBuildsDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, StorageDriverSQL)
	t.Setenv(EnvDBDriver, DBDriverPostgres)

	if _, err := Load(); err == nil {
		t.Fatal("expected postgres without dsn or host parts to fail")
	}

	t.Setenv(EnvDBHost, "db")
	t.Setenv(EnvDBUser, "shop")
	t.Setenv(EnvDBName, "storefront")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.DSN != "postgres://shop@db:5432/storefront?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
}

func TestLoad_SQLiteDefaultsDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, StorageDriverSQL)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB.DSN != defaultSQLiteDSN {
		t.Fatalf("expected sqlite default dsn, got %q", cfg.DB.DSN)
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, "cassette")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown driver to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAppEnv, "dev")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
