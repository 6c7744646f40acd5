package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q, want gpt-4o", cfg.OpenAIModel)
	}
	if cfg.CompletionTimeout != 120*time.Second {
		t.Errorf("CompletionTimeout = %v, want 120s", cfg.CompletionTimeout)
	}
	if cfg.SearchTimeout != 10*time.Second {
		t.Errorf("SearchTimeout = %v, want 10s", cfg.SearchTimeout)
	}
	if cfg.SearchEnabled() {
		t.Error("SearchEnabled() = true without CSE credentials")
	}
	if cfg.StorageEnabled {
		t.Error("StorageEnabled = true without bucket config")
	}
}

func TestLoadRequiresOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("Load() succeeded without OPENAI_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "9090")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("GOOGLE_CSE_KEY", "cse-key")
	t.Setenv("GOOGLE_CSE_CX", "cse-cx")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("SEARCH_TIMEOUT", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.OpenAIModel != "gpt-4o-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
	if !cfg.SearchEnabled() {
		t.Error("SearchEnabled() = false with CSE credentials set")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.SearchTimeout != 30*time.Second {
		t.Errorf("SearchTimeout = %v, want 30s", cfg.SearchTimeout)
	}
}

func TestGetEnvWithFallback(t *testing.T) {
	t.Setenv("STORAGE_BUCKET", "fallback-bucket")
	if got := getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""); got != "fallback-bucket" {
		t.Errorf("getEnvWithFallback = %q", got)
	}
	t.Setenv("BUCKET_NAME", "primary-bucket")
	if got := getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""); got != "primary-bucket" {
		t.Errorf("getEnvWithFallback = %q", got)
	}
}
