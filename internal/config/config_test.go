package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envFrom(map[string]string{
		"LLM_API_KEY":             "sk-test",
		"LLM_MODEL":               "gpt-test",
		"LLM_TIMEOUT":             "6s",
		"GOOGLE_SEARCH_API_KEY":   "gkey",
		"GOOGLE_SEARCH_ENGINE_ID": "cx",
		"CACHE_TTL":               "1m",
		"ALLOWED_ORIGINS":         "https://a.example, https://b.example,",
		"PORT":                    "9090",
	}))

	if cfg.LLM.APIKey != "sk-test" || cfg.LLM.Model != "gpt-test" {
		t.Fatalf("llm config not applied: %+v", cfg.LLM)
	}
	if cfg.LLM.Timeout != 6*time.Second {
		t.Fatalf("expected 6s timeout, got %v", cfg.LLM.Timeout)
	}
	if !cfg.PDFSearchEnabled() {
		t.Fatal("expected pdf search to be enabled")
	}
	if cfg.Cache.TTL != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", cfg.Cache.TTL)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
}

func TestApplyEnvGeminiKey(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envFrom(map[string]string{
		"LLM_PROVIDER":   ProviderGemini,
		"GEMINI_API_KEY": "g-key",
		"OPENAI_API_KEY": "o-key",
	}))
	if cfg.LLM.APIKey != "g-key" {
		t.Fatalf("expected gemini key, got %q", cfg.LLM.APIKey)
	}
}

func TestPDFSearchDisabledWithoutEngineID(t *testing.T) {
	cfg := Default()
	cfg.Search.APIKey = "only-key"
	if cfg.PDFSearchEnabled() {
		t.Fatal("pdf search should require both key and engine id")
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "carrier-pigeon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookfinder.yaml")
	yamlDoc := `
llm:
  model: from-file
  timeout: 7s
cache:
  ttl: 2m
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BOOKFINDER_CONFIG", path)
	t.Setenv("LLM_MODEL", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.Model != "from-env" {
		t.Fatalf("env should override file, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Timeout != 7*time.Second {
		t.Fatalf("expected timeout from file, got %v", cfg.LLM.Timeout)
	}
	if cfg.Cache.TTL != 2*time.Minute {
		t.Fatalf("expected ttl from file, got %v", cfg.Cache.TTL)
	}
}
