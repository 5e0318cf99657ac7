package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "DATABASE_URL", "JWT_SECRET", "JWT_TTL", "OLLAMA_URL", "OLLAMA_TIMEOUT", "CORS_ORIGINS", "ARCHIVE_S3_BUCKET"} {
		os.Unsetenv(key)
	}
	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults: %v", err)
	}
	if cfg.Server.Address != ":5001" || cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Auth.JWTSecret == "" || cfg.Database.URL == "" {
		t.Fatalf("missing development defaults: %+v", cfg)
	}
	if cfg.Auth.TokenTTL != 24*time.Hour || cfg.Ollama.Timeout != 0 {
		t.Fatalf("unexpected durations: ttl=%v timeout=%v", cfg.Auth.TokenTTL, cfg.Ollama.Timeout)
	}
	if cfg.Archive.Enabled() || len(cfg.Server.CORSOrigins) != 0 {
		t.Fatalf("optional features enabled by default: %+v", cfg)
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when JWT_SECRET is not set")
	}
	t.Setenv("JWT_SECRET", "x")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with secret set: %v", err)
	}
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when DATABASE_URL is not set")
	}
}

func TestLoad_ParsesValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "supersecretvalue")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("OLLAMA_TIMEOUT", "90s")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("CORS_ORIGINS", "http://a.test, ,http://b.test")
	t.Setenv("ARCHIVE_S3_BUCKET", "chats")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ollama.Timeout != 90*time.Second || cfg.RateLimit.RequestsPerSecond != 0.5 {
		t.Fatalf("unexpected parsed values: %+v", cfg)
	}
	if strings.Join(cfg.Server.CORSOrigins, "|") != "http://a.test|http://b.test" {
		t.Fatalf("origins = %q", cfg.Server.CORSOrigins)
	}
	if !cfg.Archive.Enabled() || cfg.Archive.Prefix != "transcripts" {
		t.Fatalf("archive = %+v", cfg.Archive)
	}
	if strings.Contains(cfg.String(), "supersecretvalue") {
		t.Fatalf("secret leaked in String()")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("RATE_LIMIT_BURST", "many")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid RATE_LIMIT_BURST")
	}
}
