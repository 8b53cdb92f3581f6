package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("WFH_API_URL", "https://attendance.example.com/api")
	t.Setenv("WFH_SESSION_BACKEND", "redis")
	t.Setenv("WFH_SESSION_FILE", "/tmp/wfh/session.json")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("WFH_REDIS_PREFIX", "tenant-a")
	t.Setenv("WFH_HTTP_TIMEOUT", "15s")
	t.Setenv("WFH_VERIFY_INTERVAL_SECONDS", "300")
	t.Setenv("WFH_TIMEZONE", "Asia/Jakarta")

	cfg := fromEnv()
	if cfg.APIBaseURL != "https://attendance.example.com/api" {
		t.Fatalf("expected WFH_API_URL override, got %s", cfg.APIBaseURL)
	}
	if cfg.SessionBackend != BackendRedis {
		t.Fatalf("expected redis backend, got %s", cfg.SessionBackend)
	}
	if cfg.SessionFile != "/tmp/wfh/session.json" {
		t.Fatalf("expected WFH_SESSION_FILE override, got %s", cfg.SessionFile)
	}
	if cfg.RedisAddr != "127.0.0.1:6379" || cfg.RedisDB != 3 || cfg.RedisPrefix != "tenant-a" {
		t.Fatalf("unexpected redis settings %+v", cfg)
	}
	if cfg.HTTPTimeout != 15*time.Second {
		t.Fatalf("expected WFH_HTTP_TIMEOUT 15s, got %s", cfg.HTTPTimeout)
	}
	if cfg.VerifyInterval != 5*time.Minute {
		t.Fatalf("expected WFH_VERIFY_INTERVAL 5m, got %s", cfg.VerifyInterval)
	}
	if cfg.Location().String() != "Asia/Jakarta" {
		t.Fatalf("expected Asia/Jakarta, got %s", cfg.Location())
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"WFH_API_URL", "WFH_SESSION_BACKEND", "WFH_HTTP_TIMEOUT", "WFH_VERIFY_INTERVAL", "WFH_TIMEZONE"} {
		t.Setenv(key, "")
	}
	cfg := fromEnv()
	if cfg.SessionBackend != BackendFile {
		t.Fatalf("expected file backend by default, got %s", cfg.SessionBackend)
	}
	if cfg.HTTPTimeout != 0 || cfg.VerifyInterval != 0 {
		t.Fatalf("expected no timeout and no background check by default")
	}
	if cfg.Location() != time.Local {
		t.Fatalf("expected local timezone")
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("WFH_API_URL=http://dotenv.test/api\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	t.Setenv("WFH_API_URL", "")
	os.Unsetenv("WFH_API_URL")
	cfg := Load()
	if cfg.APIBaseURL != "http://dotenv.test/api" {
		t.Fatalf("expected value from .env, got %s", cfg.APIBaseURL)
	}
}
