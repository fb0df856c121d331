package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"faceread-quiz-service/internal/domain"
	"github.com/sirupsen/logrus"
)

const sampleYAML = `
server:
  port: "9090"
log:
  level: debug
questions:
  dir: data
  fallback_language: en
  max_retries: 5
  retry_backoff: 50ms
  ttl: 10m
  fetch_timeout: 5s
quiz:
  policy: current
  dwell: 0s
  keep_pool_on_reset: false
  grades:
    master: 80
    expert: 50
    rookie: 20
`

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Server.Port)
	}

	loader, err := cfg.LoaderConfig()
	if err != nil {
		t.Fatalf("loader config: %v", err)
	}
	if loader.FallbackLanguage != domain.LanguageEnglish || loader.MaxRetries != 5 ||
		loader.RetryBackoff != 50*time.Millisecond || loader.TTL != 10*time.Minute || !loader.CacheEnabled ||
		loader.FetchTimeout != 5*time.Second {
		t.Fatalf("unexpected loader config %+v", loader)
	}

	policy := cfg.SelectionPolicy()
	if policy.Total != 15 || len(policy.Quotas) != 1 {
		t.Fatalf("expected current policy, got %+v", policy)
	}
	if cfg.Dwell() != 0 {
		t.Fatalf("expected synchronous advance, got %v", cfg.Dwell())
	}
	if cfg.KeepPoolOnReset() {
		t.Fatalf("expected pool to be dropped on reset")
	}
	if cfg.GradeCutoffs().Master != 80 {
		t.Fatalf("expected master cutoff 80, got %+v", cfg.GradeCutoffs())
	}
}

func TestDefaults(t *testing.T) {
	var cfg Config
	loader, err := cfg.LoaderConfig()
	if err != nil {
		t.Fatalf("loader config: %v", err)
	}
	if loader.FallbackLanguage != domain.LanguageKorean || loader.MaxRetries != 3 || loader.TTL != 0 {
		t.Fatalf("unexpected defaults %+v", loader)
	}
	if p := cfg.SelectionPolicy(); p.Total != 10 || len(p.Quotas) != 3 {
		t.Fatalf("expected classic policy, got %+v", p)
	}
	if cfg.Dwell() != 1200*time.Millisecond || !cfg.KeepPoolOnReset() {
		t.Fatalf("unexpected quiz defaults")
	}
}

func TestUnsupportedFallbackLanguage(t *testing.T) {
	var cfg Config
	cfg.Questions.FallbackLanguage = "fr"
	if _, err := cfg.LoaderConfig(); err == nil {
		t.Fatalf("expected unsupported language error")
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Second); got != time.Second {
		t.Fatalf("expected fallback on parse error, got %v", got)
	}
	if got := TTLDuration("3m", time.Second); got != 3*time.Minute {
		t.Fatalf("expected 3m, got %v", got)
	}
}

func TestNewLoggerLevels(t *testing.T) {
	var cfg Config
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	log := NewLogger(cfg)
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}
	if _, ok := log.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected json formatter, got %T", log.Formatter)
	}

	cfg.Log.Level = "chatty"
	if NewLogger(cfg).GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected unknown level to fall back to info")
	}
}
