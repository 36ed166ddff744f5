package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/mmynk/splitledger/internal/calculator"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "LOCK_TIMEOUT", "REMAINDER_POLICY", "LOCALE", "LEDGER_CONFIG"} {
		t.Setenv(key, "")
	}
	// run from an empty directory so no stray .env is picked up
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Ledger.LockTimeout != 10*time.Second {
		t.Errorf("LockTimeout = %s", cfg.Ledger.LockTimeout)
	}
	policy, _ := cfg.RemainderPolicy()
	if policy != calculator.RemainderNone {
		t.Errorf("policy = %q", policy)
	}
	table, _ := cfg.PrecisionTable()
	if table.DecimalsFor("JPY") != 0 {
		t.Error("default table lost JPY")
	}
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	clearEnv(t)

	yamlPath := filepath.Join(t.TempDir(), "ledger.yaml")
	content := `
server:
  port: 9000
database:
  path: /var/lib/ledger.db
ledger:
  remainder_policy: payer
  lock_timeout: 2s
  locale: de
currencies:
  usd: 3
  CLF: 4
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write yaml: %v", err)
	}
	t.Setenv("LEDGER_CONFIG", yamlPath)
	t.Setenv("PORT", "9100")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should override yaml port, got %d", cfg.Server.Port)
	}
	if cfg.Database.Path != "/var/lib/ledger.db" {
		t.Errorf("Path = %s", cfg.Database.Path)
	}
	if cfg.Ledger.LockTimeout != 2*time.Second {
		t.Errorf("LockTimeout = %s", cfg.Ledger.LockTimeout)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Format = %s", cfg.Log.Format)
	}
	if policy, _ := cfg.RemainderPolicy(); policy != calculator.RemainderToPayer {
		t.Errorf("policy = %q", policy)
	}
	if tag, _ := cfg.Locale(); tag != language.German {
		t.Errorf("locale = %v", tag)
	}
	table, err := cfg.PrecisionTable()
	if err != nil {
		t.Fatalf("PrecisionTable failed: %v", err)
	}
	if table.DecimalsFor("USD") != 3 || table.DecimalsFor("CLF") != 4 {
		t.Errorf("overrides not applied: USD=%d CLF=%d", table.DecimalsFor("USD"), table.DecimalsFor("CLF"))
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad port", map[string]string{"PORT": "eighty"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
		{"bad timeout", map[string]string{"LOCK_TIMEOUT": "soon"}},
		{"bad policy", map[string]string{"REMAINDER_POLICY": "random"}},
		{"bad format", map[string]string{"LOG_FORMAT": "xml"}},
		{"missing yaml", map[string]string{"LEDGER_CONFIG": "/nonexistent/ledger.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestValidate_BadCurrency(t *testing.T) {
	cfg := Default()
	cfg.Currencies = map[string]int{"ZZZ": 2}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown currency")
	}
	cfg.Currencies = map[string]int{"USD": 9}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for 9 decimals")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DB_PATH")
	if err := os.WriteFile(".env", []byte("DB_PATH=/tmp/from-dotenv.db\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DB_PATH") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Database.Path != "/tmp/from-dotenv.db" {
		t.Errorf("Path = %s, want value from .env", cfg.Database.Path)
	}
}
