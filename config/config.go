package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr    string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string
	SessionTTL    time.Duration
	StorageDir    string
	PublicBaseURL string
	CORSOrigins   []string
	SeedElements  bool
}

// Load reads .env (when present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, using process environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can supply their own.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		ListenAddr:    withDefault(getenv("LISTEN_ADDR"), ":10000"),
		MongoURI:      getenv("MONGODB_URI"),
		MongoDB:       withDefault(getenv("MONGODB_DB"), "misedb"),
		RedisAddr:     getenv("REDIS_ADDR"),
		RedisPassword: getenv("REDIS_PASSWORD"),
		JWTSecret:     getenv("JWT_SECRET"),
		StorageDir:    withDefault(getenv("STORAGE_DIR"), "./static"),
		PublicBaseURL: strings.TrimRight(withDefault(getenv("PUBLIC_BASE_URL"), "http://localhost:10000"), "/"),
		CORSOrigins:   splitCSV(withDefault(getenv("CORS_ORIGINS"), "*")),
		SeedElements:  getenv("SEED_ELEMENTS") == "true",
	}

	if cfg.MongoURI == "" {
		return Config{}, errors.New("MONGODB_URI environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET environment variable is not set")
	}

	ttl := withDefault(getenv("SESSION_TTL"), "12h")
	d, err := time.ParseDuration(ttl)
	if err != nil || d <= 0 {
		return Config{}, fmt.Errorf("invalid SESSION_TTL %q", ttl)
	}
	cfg.SessionTTL = d

	return cfg, nil
}

// CORSCredentials reports whether browsers may send credentials cross-origin.
// A wildcard origin never allows them.
func (c Config) CORSCredentials() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return false
		}
	}
	return len(c.CORSOrigins) > 0
}

func withDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
