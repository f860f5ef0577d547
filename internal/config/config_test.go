package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Server.Addr != ":8080" {
		t.Errorf("default server.addr = %q, want \":8080\"", cfg.Server.Addr)
	}
	if cfg.Storage.Type != "memory" {
		t.Errorf("default storage.type = %q, want \"memory\"", cfg.Storage.Type)
	}
	if cfg.Auth.Issuer != "scribe" {
		t.Errorf("default auth.issuer = %q, want \"scribe\"", cfg.Auth.Issuer)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("defaults without a secret must not validate")
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
  grpc_addr: ":9091"
  request_timeout: 3s
auth:
  secret: "` + testSecret + `"
storage:
  type: postgres
  postgres:
    dsn: "postgres://u:p@localhost/scribe"
    migrate_on_start: true
rate_limit:
  login_rps: 2
  login_burst: 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.GRPCAddr != ":9091" {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 3*time.Second {
		t.Errorf("request_timeout = %v, want 3s", cfg.Server.RequestTimeout)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("unset fields must keep defaults, got %v", cfg.Server.ShutdownTimeout)
	}
	if !cfg.Storage.Postgres.MigrateOnStart || cfg.Storage.Type != "postgres" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
}

func TestEnvOverridesAndSecretFile(t *testing.T) {
	dir := t.TempDir()
	secretPath := filepath.Join(dir, "secret")
	if err := os.WriteFile(secretPath, []byte(testSecret+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SCRIBE_CONFIG", "")
	t.Setenv("SCRIBE_AUTH_SECRET_FILE", secretPath)
	t.Setenv("SCRIBE_HTTP_ADDR", ":7000")
	t.Setenv("SCRIBE_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SCRIBE_TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	if _, err := Load(filepath.Join(dir, "absent.yaml")); err == nil {
		t.Fatal("explicit missing config path must fail")
	}

	cfg, err := Load(writeEmpty(t, dir))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Auth.Secret != testSecret {
		t.Errorf("secret not read from file")
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", cfg.Server.Addr)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.CORS.AllowedOrigins)
	}
	if len(cfg.RateLimit.TrustedProxies) != 2 || cfg.RateLimit.TrustedProxies[0] != "10.0.0.0/8" {
		t.Errorf("unexpected trusted proxies %v", cfg.RateLimit.TrustedProxies)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Auth.Secret = "short"
	cfg.Storage.Type = "mongo"
	cfg.Uploads.MaxBytes = 0
	cfg.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.1", "proxy.local"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if strings.Contains(err.Error(), "10.0.0.0/8") || strings.Contains(err.Error(), "192.168.1.1") {
		t.Errorf("valid proxies reported: %v", err)
	}
	for _, want := range []string{"auth.secret", "storage.type", "uploads.max_bytes", "proxy.local"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func writeEmpty(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(path, []byte("{}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
