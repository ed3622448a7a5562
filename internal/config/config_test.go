package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "pagewright" {
		t.Errorf("expected Name=pagewright, got %s", cfg.Name)
	}
	if cfg.Router.PagesDir != "pages" {
		t.Errorf("expected PagesDir=pages, got %s", cfg.Router.PagesDir)
	}
	if cfg.Cooldown.FailureThreshold != 3 {
		t.Errorf("expected FailureThreshold=3, got %d", cfg.Cooldown.FailureThreshold)
	}
	if cfg.GetCooldownWindow() != 5*time.Minute {
		t.Errorf("expected 5m cooldown window, got %v", cfg.GetCooldownWindow())
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PAGEWRIGHT_PROVIDER", "")
	t.Setenv("PAGEWRIGHT_PAGES_DIR", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "sk-test"
	cfg.Router.PagesDir = "docs"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Provider != "openai" {
		t.Errorf("expected Provider=openai, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.LLM.APIKey)
	}
	if loaded.Router.PagesDir != "docs" {
		t.Errorf("expected PagesDir=docs, got %s", loaded.Router.PagesDir)
	}
}

func TestConfig_MissingFileYieldsDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "no-such-config.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Router.PagesDir != "pages" {
		t.Errorf("expected default PagesDir, got %s", cfg.Router.PagesDir)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai-key")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PAGEWRIGHT_PAGES_DIR", "site")
	t.Setenv("PAGEWRIGHT_MODEL", "gpt-4o-mini")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected env provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "env-openai-key" {
		t.Errorf("expected env api key, got %s", cfg.LLM.APIKey)
	}
	if cfg.Router.PagesDir != "site" {
		t.Errorf("expected env pages dir site, got %s", cfg.Router.PagesDir)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("expected env model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_GeminiKeyWinsOverOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-key")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Provider != "gemini" || cfg.LLM.APIKey != "gemini-key" {
		t.Errorf("expected gemini override, got provider=%s key=%s", cfg.LLM.Provider, cfg.LLM.APIKey)
	}
}

func TestDurationHelpersFallBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Classifier.Timeout = "not-a-duration"
	cfg.Cooldown.Window = "also bad"
	cfg.Orchestrator.RetryBackoff = ""

	if got := cfg.GetClassifyTimeout(); got != 8*time.Second {
		t.Errorf("expected 8s classify fallback, got %v", got)
	}
	if got := cfg.GetCooldownWindow(); got != 5*time.Minute {
		t.Errorf("expected 5m cooldown fallback, got %v", got)
	}
	if got := cfg.GetRetryBackoff(); got != 500*time.Millisecond {
		t.Errorf("expected 500ms backoff fallback, got %v", got)
	}
}

func TestLabelBudgetClamped(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Classifier.LabelBudget = 4
	if got := cfg.GetLabelBudget(); got != MinLabelBudget {
		t.Errorf("expected clamp to %d, got %d", MinLabelBudget, got)
	}

	cfg.Classifier.LabelBudget = 32
	if got := cfg.GetLabelBudget(); got != 32 {
		t.Errorf("expected configured budget 32, got %d", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"openai with key", func(c *Config) { c.LLM.Provider = "openai"; c.LLM.APIKey = "k" }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "acme" }, true},
		{"provider without key", func(c *Config) { c.LLM.Provider = "gemini"; c.LLM.APIKey = "" }, true},
		{"empty pages dir", func(c *Config) { c.Router.PagesDir = "" }, true},
		{"zero constrained attempts", func(c *Config) { c.Orchestrator.MaxConstrainedAttempts = 0 }, true},
		{"negative step retries", func(c *Config) { c.Orchestrator.StepRetries = -1 }, true},
		{"zero failure threshold", func(c *Config) { c.Cooldown.FailureThreshold = 0 }, true},
		{"zero queue size", func(c *Config) { c.Status.QueueSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWatcherReloadsOnSettledWrite(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("PAGEWRIGHT_PAGES_DIR", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	reloaded := make(chan *Config, 4)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	cfg := DefaultConfig()
	cfg.Router.PagesDir = "site"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.Router.PagesDir != "site" {
			t.Fatalf("reloaded config has PagesDir=%s", got.Router.PagesDir)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watcher never reloaded; stats: %+v", w.GetStats())
	}

	if !w.IsWatching() {
		t.Fatalf("expected watcher running")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	if err := w.Start(t.Context()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write unrelated file: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatalf("unrelated file triggered a reload")
	case <-time.After(1200 * time.Millisecond):
	}
}
