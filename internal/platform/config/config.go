package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Values come from the
// environment so main stays lean.
type Server struct {
	Addr        string
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	// JWTSigningKey verifies bearer tokens. Empty disables authentication
	// entirely, matching the original deployment's local-dev bypass.
	JWTSigningKey string
	// AuthGroups is the set of directory groups allowed to call the API
	// when the token carries group claims.
	AuthGroups []string
	// CNAllowlist is the set of certificate common names allowed when the
	// caller authenticates with a cert-type token instead.
	CNAllowlist []string
	// APIKeyHashes holds bcrypt hashes of service API keys; comma-safe
	// because bcrypt output never contains commas.
	APIKeyHashes []string

	// DedupWindow bounds how far back the duplicate lookup reaches.
	DedupWindow time.Duration
}

// RedisConfig tunes the shared Redis client used by the lock provider.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig points the audit publisher at its brokers. Empty Brokers
// disables the Kafka sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("MIMIR_ADDR", ":8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_AUDIT_TOPIC", "mimir.audit.events"),
		},
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		AuthGroups:    splitList(os.Getenv("AUTH_GROUPS")),
		CNAllowlist:   splitList(os.Getenv("CN_ALLOWLIST")),
		APIKeyHashes:  splitList(os.Getenv("API_KEY_HASHES")),
		DedupWindow:   getEnvDuration("DEDUP_WINDOW", 24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
