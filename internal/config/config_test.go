package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads; viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SALON_CONFIG_FILE", "SALON_HTTP_ADDR", "HTTP_ADDR", "SALON_GRPC_ADDR", "GRPC_ADDR",
		"SALON_GRPC_REQUEST_TIMEOUT", "SALON_DATABASE_URL", "DATABASE_URL", "SALON_DATABASE_MIGRATE",
		"SALON_JWT_SECRET", "JWT_SECRET", "SALON_TOKEN_TTL", "SALON_ADMIN_USERNAME",
		"SALON_MAIL_HOST", "SALON_MAIL_PORT", "SALON_NOTIFY_WORKERS", "SALON_NOTIFY_RETRY_DELAY",
		"SALON_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT", "SALON_LOG_LEVEL", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); !errors.Is(err, ErrMissingJWTSecret) {
		t.Fatalf("err = %v, want %v", err, ErrMissingJWTSecret)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.GRPCAddr != ":50051" {
		t.Fatalf("addrs = %q %q", cfg.HTTPAddr, cfg.GRPCAddr)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("jwt secret = %q", cfg.JWTSecret)
	}
	if cfg.TokenTTL != 15*time.Minute || cfg.ShutdownTimeout != 10*time.Second || cfg.GRPCRequestTimeout != 10*time.Second {
		t.Fatalf("durations = %v %v %v", cfg.TokenTTL, cfg.ShutdownTimeout, cfg.GRPCRequestTimeout)
	}
	if !cfg.DatabaseMigrate {
		t.Fatalf("expected migrations enabled by default")
	}
	if cfg.Notify.QueueSize != 256 || cfg.Notify.Workers != 2 || cfg.Notify.Attempts != 3 || cfg.Notify.RetryDelay != 2*time.Second {
		t.Fatalf("notify = %+v", cfg.Notify)
	}
	if cfg.Mail.Host != "" || cfg.Admin.Username != "" {
		t.Fatalf("mail/admin should be empty: %+v %+v", cfg.Mail, cfg.Admin)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SALON_JWT_SECRET", "env-secret")
	t.Setenv("SALON_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("SALON_DATABASE_MIGRATE", "false")
	t.Setenv("SALON_TOKEN_TTL", "1h")
	t.Setenv("SALON_MAIL_HOST", "smtp.example.com")
	t.Setenv("SALON_MAIL_PORT", "2525")
	t.Setenv("SALON_NOTIFY_WORKERS", "4")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Fatalf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.DatabaseMigrate {
		t.Fatalf("expected migrations disabled")
	}
	if cfg.TokenTTL != time.Hour {
		t.Fatalf("token ttl = %v", cfg.TokenTTL)
	}
	if cfg.Mail.Host != "smtp.example.com" || cfg.Mail.Port != 2525 {
		t.Fatalf("mail = %+v", cfg.Mail)
	}
	if cfg.Notify.Workers != 4 {
		t.Fatalf("workers = %d", cfg.Notify.Workers)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("SALON_SHUTDOWN_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected duration error")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "salon.yaml")
	body := "auth:\n  jwt_secret: file-secret\nadmin:\n  username: root\n  email: root@example.com\n  password: rootpass1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SALON_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.JWTSecret != "file-secret" {
		t.Fatalf("jwt secret = %q", cfg.JWTSecret)
	}
	if cfg.Admin.Username != "root" || cfg.Admin.Email != "root@example.com" {
		t.Fatalf("admin = %+v", cfg.Admin)
	}
}
