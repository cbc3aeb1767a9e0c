package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Scraper.ResultsPerPage != 120 {
		t.Errorf("results per page = %d, want 120", cfg.Scraper.ResultsPerPage)
	}
	if cfg.Scraper.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %v, want 30s", cfg.Scraper.RequestTimeout)
	}
	if cfg.Scraper.MinDelay != 2*time.Second || cfg.Scraper.MaxDelay != 5*time.Second {
		t.Errorf("delays = %v..%v, want 2s..5s", cfg.Scraper.MinDelay, cfg.Scraper.MaxDelay)
	}
	if cfg.Scraper.Captcha.MaxRetries != 3 {
		t.Errorf("captcha max retries = %d, want 3", cfg.Scraper.Captcha.MaxRetries)
	}
	if cfg.Scraper.Email.MaxConcurrent != 2 {
		t.Errorf("email max concurrent = %d, want 2", cfg.Scraper.Email.MaxConcurrent)
	}
	if cfg.RateLimit.RequestsPerMinute != 20 || cfg.RateLimit.Burst != 3 {
		t.Errorf("rate limit = %d/%d, want 20/3", cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	}
	if cfg.Storage.OutputFile != "leads.jsonl" {
		t.Errorf("output file = %q", cfg.Storage.OutputFile)
	}
}

func TestLoadConfigYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
scraper:
  results_per_page: 25
  min_delay: 1s
  max_delay: 3s
  email:
    max_concurrent: 4
rate_limit:
  requests_per_minute: 10
  burst: 2
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Scraper.ResultsPerPage != 25 {
		t.Errorf("results per page = %d, want 25", cfg.Scraper.ResultsPerPage)
	}
	if cfg.Scraper.Email.MaxConcurrent != 4 {
		t.Errorf("email max concurrent = %d, want 4", cfg.Scraper.Email.MaxConcurrent)
	}
	if cfg.RateLimit.RequestsPerMinute != 10 {
		t.Errorf("requests per minute = %d, want 10", cfg.RateLimit.RequestsPerMinute)
	}
	// Untouched fields keep their defaults.
	if cfg.Scraper.Captcha.Timeout != 120*time.Second {
		t.Errorf("captcha timeout = %v, want default 120s", cfg.Scraper.Captcha.Timeout)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CAPTCHA_API_KEY", "env-key")
	t.Setenv("EMAIL_MAX_CONCURRENT", "5")
	t.Setenv("SCRAPER_MIN_DELAY", "500ms")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Scraper.Captcha.APIKey != "env-key" {
		t.Errorf("captcha key = %q, want env-key", cfg.Scraper.Captcha.APIKey)
	}
	if cfg.Scraper.Email.MaxConcurrent != 5 {
		t.Errorf("email max concurrent = %d, want 5", cfg.Scraper.Email.MaxConcurrent)
	}
	if cfg.Scraper.MinDelay != 500*time.Millisecond {
		t.Errorf("min delay = %v, want 500ms", cfg.Scraper.MinDelay)
	}
}

func TestLoadConfigInvalidDelays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
scraper:
  min_delay: 5s
  max_delay: 1s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("err = nil, want validation failure for max_delay < min_delay")
	}
}
