package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port            string
	FrontendURL     string
	ReverseProxyIPs []string

	// Self-call URLs (logout and leave-group kick through the HTTP surface)
	GroupURL     string
	MsgQueuesURL string

	// Security
	JWTSecret     string
	JWTExpiration time.Duration

	// Game instances
	GameHost           string
	GamePortRangeStart int
	GamePortRangeStop  int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/webgames?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:            getEnv("APP_PORT", "22548"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		ReverseProxyIPs: getEnvList("REVERSE_PROXY_IPS", nil),

		// Self-call URLs
		GroupURL:     getEnv("GROUP_URL", "http://localhost:22548/v1/groups"),
		MsgQueuesURL: getEnv("MSGQUEUES_URL", "http://localhost:22548/v1/msgqueues"),

		// Security
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpiration: getEnvDuration("JWT_EXPIRATION_TIME", 12*time.Hour),

		// Game instances
		GameHost:           getEnv("GAME_HOST", "localhost"),
		GamePortRangeStart: getEnvInt("GAME_PORT_RANGE_START", 30000),
		GamePortRangeStop:  getEnvInt("GAME_PORT_RANGE_STOP", 31000),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// A value that is set but unparsable aborts startup: silently running on a
// default port range or token lifetime is worse than not starting.
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("[CONFIG] %s: invalid integer %q", key, value)
	}
	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("[CONFIG] %s: invalid duration %q (use forms like \"12h\", \"30m\")", key, value)
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
