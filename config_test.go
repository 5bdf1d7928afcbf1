package bridge_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	bridge "github.com/goliatone/go-formbridge"
	"github.com/goliatone/go-formbridge/pkg/rules"
)

func TestDefaultConfig(t *testing.T) {
	cfg := bridge.DefaultConfig()
	if !cfg.EnableValidation || !cfg.EnableErrorRecovery || cfg.DebugMode {
		t.Fatalf("unexpected toggles %+v", cfg)
	}
	if cfg.ValidationMode != bridge.ValidationStrict {
		t.Fatalf("expected strict mode, got %q", cfg.ValidationMode)
	}
	if cfg.MaxRetryAttempts != 2 || cfg.Timeout() != 5*time.Second || cfg.RetryDelay() != time.Second {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestNewConfigRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		opt  bridge.Option
	}{
		{"zero retries", bridge.WithMaxRetryAttempts(0)},
		{"too many retries", bridge.WithMaxRetryAttempts(11)},
		{"zero timeout", bridge.WithTimeout(0)},
		{"long timeout", bridge.WithTimeout(31 * time.Second)},
		{"negative delay", bridge.WithRetryDelay(-time.Second)},
		{"unknown mode", bridge.WithValidationMode("loose")},
		{"unknown engine", bridge.WithRules("lua")},
		{"bad rule", bridge.WithRules(rules.EngineExpr, rules.Rule{Name: "x"})},
		{"bad rule direction", bridge.WithRules(rules.EngineExpr, rules.Rule{Name: "x", Expression: "true", Direction: "sideways"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := bridge.NewConfig(tc.opt); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	cfg, err := bridge.NewConfig(bridge.WithMaxRetryAttempts(10), bridge.WithTimeout(30*time.Second))
	if err != nil {
		t.Fatalf("upper bounds must be accepted: %v", err)
	}
	if cfg.MaxRetryAttempts != 10 || cfg.TimeoutMs != 30000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestParseConfigAppliesDefaults(t *testing.T) {
	cfg, err := bridge.ParseConfig([]byte(`
maxRetryAttempts: 3
timeoutMs: 250
validationMode: lenient
contentFieldKey: body
rules:
  - name: long-enough
    expression: totalCharacters >= 10
    severity: advisory
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxRetryAttempts != 3 || cfg.TimeoutMs != 250 || cfg.ValidationMode != bridge.ValidationLenient {
		t.Fatalf("unexpected values %+v", cfg)
	}
	if !cfg.EnableValidation || !cfg.EnableErrorRecovery || cfg.RetryDelayMs != 1000 {
		t.Fatalf("expected defaults for missing keys, got %+v", cfg)
	}
	if cfg.RuleEngine != rules.EngineExpr {
		t.Fatalf("expected default engine, got %q", cfg.RuleEngine)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Severity != rules.SeverityAdvisory {
		t.Fatalf("unexpected rules %+v", cfg.Rules)
	}
	if cfg.ContentFieldKey != "body" {
		t.Fatalf("unexpected content field key %q", cfg.ContentFieldKey)
	}
}

func TestParseConfigRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":  "bogus: true\n",
		"out of range": "maxRetryAttempts: 50\n",
		"bad yaml":     "maxRetryAttempts: [\n",
		"wrong type":   "timeoutMs: soon\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := bridge.ParseConfig([]byte(input)); err == nil {
				t.Fatalf("expected error for %q", input)
			}
		})
	}
}

func TestParseConfigEmptyInputIsDefaults(t *testing.T) {
	cfg, err := bridge.ParseConfig(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxRetryAttempts != bridge.DefaultMaxRetryAttempts || cfg.TimeoutMs != 5000 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte("debugMode: true\nretryDelayMs: 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := bridge.LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.DebugMode || cfg.RetryDelayMs != 0 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	_, err = bridge.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestLoadConfigLayersFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	local := filepath.Join(dir, "local.yaml")
	if err := os.WriteFile(base, []byte("maxRetryAttempts: 5\ntimeoutMs: 9000\nvalidationMode: lenient\n"), 0o600); err != nil {
		t.Fatalf("write base: %v", err)
	}
	if err := os.WriteFile(local, []byte("timeoutMs: 1500\n"), 0o600); err != nil {
		t.Fatalf("write local: %v", err)
	}

	cfg, err := bridge.LoadConfig(base, local)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxRetryAttempts != 5 || cfg.TimeoutMs != 1500 || cfg.ValidationMode != bridge.ValidationLenient {
		t.Fatalf("expected later files to override earlier ones, got %+v", cfg)
	}
	if cfg.RetryDelayMs != 1000 {
		t.Fatalf("expected unset keys to keep defaults, got %d", cfg.RetryDelayMs)
	}

	if _, err := bridge.LoadConfig(); err == nil {
		t.Fatalf("expected error without files")
	}
}

func TestWithConfigKeepsRuntimeCollaborators(t *testing.T) {
	logger := slog.Default()
	loaded, err := bridge.ParseConfig([]byte("maxRetryAttempts: 4\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := bridge.NewConfig(bridge.WithLogger(logger), bridge.WithConfig(loaded))
	if err != nil {
		t.Fatalf("new config: %v", err)
	}
	if cfg.Logger != logger || cfg.MaxRetryAttempts != 4 {
		t.Fatalf("expected loaded values and kept logger, got %+v", cfg)
	}
}
