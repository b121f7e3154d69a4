package config

import "testing"

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.MaxSessions != 500 {
		t.Errorf("MaxSessions = %d, want 500", cfg.MaxSessions)
	}
	if cfg.ActivityLogSize != 50 {
		t.Errorf("ActivityLogSize = %d, want 50", cfg.ActivityLogSize)
	}
	if cfg.StoreBackend != BackendSQLite {
		t.Errorf("StoreBackend = %q, want sqlite", cfg.StoreBackend)
	}
	if cfg.GuardStrategy != GuardAuto {
		t.Errorf("GuardStrategy = %q, want auto", cfg.GuardStrategy)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HONEYPOT_PORT", "9100")
	t.Setenv("HONEYPOT_MAX_SESSIONS", "25")
	t.Setenv("HONEYPOT_STORE_BACKEND", "redis")

	cfg := NewDefaultConfig()
	if cfg.Port != "9100" {
		t.Errorf("Port = %q, want 9100", cfg.Port)
	}
	if cfg.MaxSessions != 25 {
		t.Errorf("MaxSessions = %d, want 25", cfg.MaxSessions)
	}
	if cfg.StoreBackend != BackendRedis {
		t.Errorf("StoreBackend = %q, want redis", cfg.StoreBackend)
	}
}

func TestValidate(t *testing.T) {
	t.Run("defaults pass in dev", func(t *testing.T) {
		cfg := NewDefaultConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.StoreBackend = "cassandra"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown backend")
		}
	})

	t.Run("unknown guard strategy rejected", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.GuardStrategy = "oracle"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown strategy")
		}
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.StoreBackend = BackendPostgres
		cfg.PostgresDSN = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for postgres without DSN")
		}
	})

	t.Run("production requires api key", func(t *testing.T) {
		t.Setenv("HONEYPOT_ENV", "production")
		cfg := NewDefaultConfig()
		cfg.APISecretKey = ""
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing API_SECRET_KEY in production")
		}
	})
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("HONEYPOT_TEST_STR", "value")
	t.Setenv("HONEYPOT_TEST_INT", "42")
	t.Setenv("HONEYPOT_TEST_BAD_INT", "not-a-number")

	if got := GetEnv("HONEYPOT_TEST_STR", "fallback"); got != "value" {
		t.Errorf("GetEnv set = %q", got)
	}
	if got := GetEnv("HONEYPOT_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("GetEnv missing = %q", got)
	}
	if got := GetEnvInt("HONEYPOT_TEST_INT", 7); got != 42 {
		t.Errorf("GetEnvInt set = %d", got)
	}
	if got := GetEnvInt("HONEYPOT_TEST_BAD_INT", 7); got != 7 {
		t.Errorf("GetEnvInt malformed = %d", got)
	}

	t.Setenv("HONEYPOT_TEST_BOOL", "1")
	if !GetEnvBool("HONEYPOT_TEST_BOOL", false) {
		t.Error("GetEnvBool should parse 1 as true")
	}
	if GetEnvBool("HONEYPOT_TEST_MISSING", false) {
		t.Error("GetEnvBool missing should return the default")
	}

	t.Setenv("HONEYPOT_TEST_FLOAT", "0.85")
	if got := GetEnvFloat("HONEYPOT_TEST_FLOAT", 0.5); got != 0.85 {
		t.Errorf("GetEnvFloat set = %v", got)
	}
	if got := GetEnvFloat("HONEYPOT_TEST_MISSING", 0.5); got != 0.5 {
		t.Errorf("GetEnvFloat missing = %v", got)
	}
}
