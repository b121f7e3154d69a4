package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects the durable threat-intelligence backing.
type StoreBackend string

const (
	BackendSQLite   StoreBackend = "sqlite"   // Embedded, zero-ops default
	BackendRedis    StoreBackend = "redis"    // Shared cache across replicas
	BackendPostgres StoreBackend = "postgres" // Relational, external retention tooling
)

// GuardStrategy selects the scam classifier implementation.
type GuardStrategy string

const (
	GuardAuto     GuardStrategy = "auto"     // Model if loadable, else semantic, else keyword
	GuardKeyword  GuardStrategy = "keyword"  // Deterministic phrase matching, no dependencies
	GuardModel    GuardStrategy = "model"    // Local ONNX text classifier (hugot)
	GuardSemantic GuardStrategy = "semantic" // Embedding similarity against known scam scripts
)

// Config holds global settings for the honeypot.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Transport ===
	Port         string // HTTP listen port (default: "8000")
	APISecretKey string // Required x-api-key value for /chat (env: API_SECRET_KEY)

	// === Memory ===
	MaxSessions     int // LRU capacity of the session table (default: 500)
	ActivityLogSize int // Bounded recent-activity log capacity (default: 50)

	// === Indicator Store ===
	StoreBackend StoreBackend // "sqlite", "redis" or "postgres"
	SQLitePath   string       // Path to the sqlite database file
	RedisAddr    string       // host:port of the redis backing
	RedisDB      int          // Redis logical database
	PostgresDSN  string       // pgx connection string

	// === Scam Guard ===
	GuardStrategy GuardStrategy // Classifier selection policy
	RulesPath     string        // Optional YAML file overriding trigger/phrase lists
	OllamaBaseURL string        // Embedding endpoint for the semantic strategy

	// === Persona Engine ===
	PersonaAPIKey      string        // API key for the chat-completions provider (env: GROQ_API_KEY)
	PersonaBaseURL     string        // OpenAI-compatible base URL (default: Groq)
	PersonaModel       string        // Chat model identifier
	PersonaPath        string        // Optional YAML persona profile
	PersonaTimeout     time.Duration // Per-generation deadline
	PersonaMaxInFlight int           // Concurrent generation cap before falling back
	PersonaHistory     int           // Conversation turns kept per session
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		Port:         GetEnv("HONEYPOT_PORT", "8000"),
		APISecretKey: GetEnv("API_SECRET_KEY", ""),

		MaxSessions:     clampInt(GetEnvInt("HONEYPOT_MAX_SESSIONS", 500), 1, 1_000_000),
		ActivityLogSize: clampInt(GetEnvInt("HONEYPOT_ACTIVITY_LOG", 50), 1, 10_000),

		StoreBackend: StoreBackend(GetEnv("HONEYPOT_STORE_BACKEND", string(BackendSQLite))),
		SQLitePath:   GetEnv("HONEYPOT_SQLITE_PATH", "data/threats.db"),
		RedisAddr:    GetEnv("HONEYPOT_REDIS_ADDR", "localhost:6379"),
		RedisDB:      GetEnvInt("HONEYPOT_REDIS_DB", 0),
		PostgresDSN:  GetEnv("HONEYPOT_POSTGRES_DSN", ""),

		GuardStrategy: GuardStrategy(GetEnv("HONEYPOT_GUARD", string(GuardAuto))),
		RulesPath:     GetEnv("HONEYPOT_RULES", ""),
		OllamaBaseURL: GetEnv("HONEYPOT_OLLAMA_URL", "http://localhost:11434"),

		PersonaAPIKey:      GetEnv("GROQ_API_KEY", ""),
		PersonaBaseURL:     GetEnv("HONEYPOT_PERSONA_BASE_URL", "https://api.groq.com/openai/v1"),
		PersonaModel:       GetEnv("HONEYPOT_PERSONA_MODEL", "llama-3.3-70b-versatile"),
		PersonaPath:        GetEnv("HONEYPOT_PERSONA", ""),
		PersonaTimeout:     time.Duration(GetEnvInt("HONEYPOT_PERSONA_TIMEOUT_MS", 30000)) * time.Millisecond,
		PersonaMaxInFlight: clampInt(GetEnvInt("HONEYPOT_PERSONA_MAX_INFLIGHT", 64), 1, 4096),
		PersonaHistory:     clampInt(GetEnvInt("HONEYPOT_PERSONA_HISTORY", 10), 0, 100),
	}
}

// IsProduction reports whether the process runs with HONEYPOT_ENV=production.
func IsProduction() bool {
	env := strings.ToLower(os.Getenv("HONEYPOT_ENV"))
	return env == "production" || env == "prod"
}

// Validate checks that all required configuration is present.
// In production mode, this returns an error if critical secrets are missing.
// In development mode, it logs warnings but allows startup for local testing.
func (c *Config) Validate() error {
	var missing []string

	if c.APISecretKey == "" {
		if IsProduction() {
			missing = append(missing, "API_SECRET_KEY (shared secret for the x-api-key header)")
		} else {
			log.Printf("[STARTUP] Warning: API_SECRET_KEY not set - /chat authentication is disabled")
		}
	}

	switch c.StoreBackend {
	case BackendSQLite, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q (want sqlite, redis or postgres)", c.StoreBackend)
	}
	if c.StoreBackend == BackendPostgres && c.PostgresDSN == "" {
		missing = append(missing, "HONEYPOT_POSTGRES_DSN (required with the postgres backend)")
	}

	switch c.GuardStrategy {
	case GuardAuto, GuardKeyword, GuardModel, GuardSemantic:
	default:
		return fmt.Errorf("unknown guard strategy %q (want auto, keyword, model or semantic)", c.GuardStrategy)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// clampInt ensures a value is within bounds.
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing.
// These are exported for use by other packages.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
