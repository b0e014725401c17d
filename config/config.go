package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Tracked symbols (comma-separated, e.g. "XYZ,ABC,DEF")
	Symbols string

	// Rolling window capacity per symbol
	WindowSize int

	// Tick feed
	TickWSURL string // WebSocket tick feed, e.g. "ws://localhost:9001/ws"

	// Serving
	ListenAddr  string // REST + WS API
	MetricsAddr string // /metrics + /healthz

	// Infrastructure (optional — empty disables the component)
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	WebhookURL    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbols:    getEnv("SYMBOLS", "XYZ,ABC,DEF"),
		WindowSize: getEnvInt("WINDOW_SIZE", 200),

		TickWSURL: getEnv("TICK_WS_URL", "ws://localhost:9001/ws"),

		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9091"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
	}
}

// ParseSymbols parses the Symbols string into a deduplicated, upper-cased slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	seen := make(map[string]bool, len(parts))
	syms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		syms = append(syms, p)
	}
	return syms
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
