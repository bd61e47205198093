package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// PostgresDSN empty selects the in-memory adapters (dev / tests).
	PostgresDSN string
	PGMaxConns  int

	RedisAddr string

	// KafkaBrokers empty disables the event bridge.
	KafkaBrokers []string
	EventsTopic  string

	ServiceName  string
	AuditGroup   string
	AuditWorkers int
}

func Load() Config {
	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		PGMaxConns:   atoi(getenv("PG_MAX_CONNS", "8")),
		RedisAddr:    getenv("REDIS_ADDR", "redis:6379"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:  getenv("EVENTS_TOPIC", "order.events"),
		ServiceName:  getenv("SERVICE_NAME", "marketplace-api"),
		AuditGroup:   getenv("AUDIT_GROUP", "order-audit"),
		AuditWorkers: atoi(getenv("AUDIT_WORKERS", "8")),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil || i < 1 {
		return 1
	}
	return i
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
