// Package config loads and validates pagewright configuration from YAML,
// applies environment overrides, and exposes parsed duration helpers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// MinLabelBudget is the smallest output budget the classifier may use.
// The longest intent label is 13 characters; a budget of 4 truncates it and
// silently forces fallback on every request.
const MinLabelBudget = 10

// Config holds all pagewright configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider configuration
	LLM LLMConfig `yaml:"llm"`

	// Classifier settings
	Classifier ClassifierConfig `yaml:"classifier"`

	// Router settings
	Router RouterConfig `yaml:"router"`

	// Orchestrator settings
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Failure cooldown settings
	Cooldown CooldownConfig `yaml:"cooldown"`

	// Status notification settings
	Status StatusConfig `yaml:"status"`

	// Session activity settings
	Session SessionConfig `yaml:"session"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the probabilistic classification/planning client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini, or empty for none
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// ClassifierConfig configures the intent classifier.
type ClassifierConfig struct {
	// LabelBudget is the max output tokens for the classification call.
	// Values below MinLabelBudget are clamped up at read time.
	LabelBudget int `yaml:"label_budget"`

	// Timeout bounds the single classification call.
	Timeout string `yaml:"timeout"`
}

// RouterConfig configures the plan builder.
type RouterConfig struct {
	// PagesDir is the canonical folder informal page references qualify into.
	PagesDir string `yaml:"pages_dir"`

	// ModelPlanning enables the model-proposed plan path when a client exists.
	ModelPlanning bool `yaml:"model_planning"`

	// Timeout bounds the model planning call.
	Timeout string `yaml:"timeout"`
}

// OrchestratorConfig configures plan execution.
type OrchestratorConfig struct {
	// MaxConstrainedAttempts bounds attempts with the plan's own sequence
	// before the single escalated attempt.
	MaxConstrainedAttempts int `yaml:"max_constrained_attempts"`

	// StepRetries is the per-step retry budget within one attempt.
	StepRetries int `yaml:"step_retries"`

	// RetryBackoff is the pause between step retries.
	RetryBackoff string `yaml:"retry_backoff"`

	// RunTimeout bounds a whole orchestration run.
	RunTimeout string `yaml:"run_timeout"`
}

// CooldownConfig configures the mutating-failure circuit breaker.
type CooldownConfig struct {
	// FailureThreshold is the consecutive mutating failures that trip it.
	FailureThreshold int `yaml:"failure_threshold"`

	// Window is how long mutating requests stay short-circuited.
	Window string `yaml:"window"`
}

// StatusConfig configures the async status notifier.
type StatusConfig struct {
	// QueueSize is the buffered event queue capacity; events beyond it drop.
	QueueSize int `yaml:"queue_size"`
}

// SessionConfig configures session activity tracking.
type SessionConfig struct {
	// MaxRecentFiles caps the per-session recent-file list.
	MaxRecentFiles int `yaml:"max_recent_files"`

	// SeedLimit caps how many files the workspace seeder preloads.
	SeedLimit int `yaml:"seed_limit"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "pagewright",
		Version: "0.3.0",

		LLM: LLMConfig{
			Provider: "",
			Model:    "",
			BaseURL:  "",
			Timeout:  "30s",
		},

		Classifier: ClassifierConfig{
			LabelBudget: 16,
			Timeout:     "8s",
		},

		Router: RouterConfig{
			PagesDir:      "pages",
			ModelPlanning: true,
			Timeout:       "10s",
		},

		Orchestrator: OrchestratorConfig{
			MaxConstrainedAttempts: 2,
			StepRetries:            1,
			RetryBackoff:           "500ms",
			RunTimeout:             "120s",
		},

		Cooldown: CooldownConfig{
			FailureThreshold: 3,
			Window:           "5m",
		},

		Status: StatusConfig{
			QueueSize: 64,
		},

		Session: SessionConfig{
			MaxRecentFiles: 10,
			SeedLimit:      20,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults;
// environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Provider API keys, checked in priority order. The last match wins so an
	// explicit GEMINI key beats an ambient OPENAI one.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}

	if provider := os.Getenv("PAGEWRIGHT_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("PAGEWRIGHT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("PAGEWRIGHT_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if dir := os.Getenv("PAGEWRIGHT_PAGES_DIR"); dir != "" {
		c.Router.PagesDir = dir
	}
}

// GetLLMTimeout returns the LLM transport timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetClassifyTimeout returns the classification call timeout as a duration.
func (c *Config) GetClassifyTimeout() time.Duration {
	d, err := time.ParseDuration(c.Classifier.Timeout)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// GetRouteTimeout returns the model planning timeout as a duration.
func (c *Config) GetRouteTimeout() time.Duration {
	d, err := time.ParseDuration(c.Router.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// GetRetryBackoff returns the per-step retry pause as a duration.
func (c *Config) GetRetryBackoff() time.Duration {
	d, err := time.ParseDuration(c.Orchestrator.RetryBackoff)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// GetRunTimeout returns the whole-run deadline as a duration.
func (c *Config) GetRunTimeout() time.Duration {
	d, err := time.ParseDuration(c.Orchestrator.RunTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetCooldownWindow returns the breaker cooldown window as a duration.
func (c *Config) GetCooldownWindow() time.Duration {
	d, err := time.ParseDuration(c.Cooldown.Window)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// GetLabelBudget returns the classifier output budget, clamped so the longest
// intent label can never be truncated by configuration.
func (c *Config) GetLabelBudget() int {
	if c.Classifier.LabelBudget < MinLabelBudget {
		return MinLabelBudget
	}
	return c.Classifier.LabelBudget
}

// ValidProviders lists all supported LLM providers. Empty disables the model
// path entirely; classification and routing then use the deterministic
// cascades only.
var ValidProviders = []string{"", "openai", "gemini"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.LLM.Provider != "" && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM provider %q configured without an API key (set OPENAI_API_KEY or GEMINI_API_KEY)", c.LLM.Provider)
	}

	if c.Router.PagesDir == "" {
		return fmt.Errorf("router pages_dir must not be empty")
	}

	if c.Orchestrator.MaxConstrainedAttempts < 1 {
		return fmt.Errorf("orchestrator max_constrained_attempts must be at least 1, got %d", c.Orchestrator.MaxConstrainedAttempts)
	}
	if c.Orchestrator.StepRetries < 0 {
		return fmt.Errorf("orchestrator step_retries must not be negative, got %d", c.Orchestrator.StepRetries)
	}

	if c.Cooldown.FailureThreshold < 1 {
		return fmt.Errorf("cooldown failure_threshold must be at least 1, got %d", c.Cooldown.FailureThreshold)
	}

	if c.Status.QueueSize < 1 {
		return fmt.Errorf("status queue_size must be at least 1, got %d", c.Status.QueueSize)
	}

	return nil
}
