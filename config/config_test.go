package config

import (
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"MONGODB_URI": "mongodb://localhost:27017",
		"JWT_SECRET":  "secret",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.ListenAddr != ":10000" || cfg.MongoDB != "misedb" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("session ttl = %v", cfg.SessionTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Fatalf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.CORSCredentials() {
		t.Fatal("wildcard origin must not allow credentials")
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("redis should be disabled by default")
	}
	if cfg.SeedElements {
		t.Fatal("seeding should be off by default")
	}
}

func TestFromEnvRequiresSecrets(t *testing.T) {
	if _, err := FromEnv(env(map[string]string{"JWT_SECRET": "x"})); err == nil {
		t.Fatal("expected error without MONGODB_URI")
	}
	if _, err := FromEnv(env(map[string]string{"MONGODB_URI": "mongodb://x"})); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestFromEnvRejectsBadTTL(t *testing.T) {
	_, err := FromEnv(env(map[string]string{
		"MONGODB_URI": "mongodb://x",
		"JWT_SECRET":  "s",
		"SESSION_TTL": "forever",
	}))
	if err == nil {
		t.Fatal("expected error for bad SESSION_TTL")
	}
}

func TestFromEnvTrimsBaseURLAndOrigins(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"MONGODB_URI":     "mongodb://x",
		"JWT_SECRET":      "s",
		"PUBLIC_BASE_URL": "https://cdn.example.com/",
		"CORS_ORIGINS":    "https://a.example.com, https://b.example.com,",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.PublicBaseURL != "https://cdn.example.com" {
		t.Fatalf("base url = %q", cfg.PublicBaseURL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("origins = %v", cfg.CORSOrigins)
	}
	if !cfg.CORSCredentials() {
		t.Fatal("explicit origins should allow credentials")
	}
}
