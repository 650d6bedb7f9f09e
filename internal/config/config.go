package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLMConfig holds settings for the oracle transport.
type LLMConfig struct {
	Provider       string `yaml:"provider"`        // "openai" or "ollama"
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`        // override for OpenAI-compatible endpoints
	TimeoutSeconds int    `yaml:"timeout_seconds"` // per-request timeout
	DefaultModel   string `yaml:"default_model"`
}

// AgentConfig holds the control-loop settings.
type AgentConfig struct {
	// MaxIterations is the base iteration budget before complexity scaling.
	MaxIterations int `yaml:"max_iterations"`
	// MaxBudget caps the budget after complexity scaling and extension.
	MaxBudget int `yaml:"max_budget"`
	// MaxTransportRetries bounds retries of failed oracle calls.
	MaxTransportRetries int `yaml:"max_transport_retries"`
	// MaxTransientRetries bounds backoff retries of a timed-out action.
	MaxTransientRetries int `yaml:"max_transient_retries"`
	// StuckThreshold is the number of consecutive failures or fallback-only
	// steps after which the progress phase flips to stuck.
	StuckThreshold int `yaml:"stuck_threshold"`
	// IdenticalThreshold is the number of consecutive identical occurrences
	// already in history before a candidate repeat counts as a loop.
	IdenticalThreshold int `yaml:"identical_threshold"`
}

// LoggingConfig holds settings for the agent log and the LLM transcript log.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	LogPath        string `yaml:"log_path"`
	TranscriptDir  string `yaml:"transcript_dir"`
	TranscriptFile string `yaml:"transcript_file"`
	MaxFileSize    int64  `yaml:"max_file_size"`
	MaxFiles       int    `yaml:"max_files"`
	TranscriptsOn  bool   `yaml:"transcripts_enabled"`
}

// Config is the root application configuration. It is an explicit value
// handed to the controller at construction; there is no mutable global.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Agent   AgentConfig   `yaml:"agent"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "openai",
			TimeoutSeconds: 30,
			DefaultModel:   "gpt-4o-mini",
		},
		Agent: AgentConfig{
			MaxIterations:       10,
			MaxBudget:           25,
			MaxTransportRetries: 3,
			MaxTransientRetries: 2,
			StuckThreshold:      3,
			IdenticalThreshold:  2,
		},
		Logging: LoggingConfig{
			Level:         "info",
			MaxFileSize:   10 * 1024 * 1024,
			MaxFiles:      10,
			TranscriptsOn: true,
		},
	}
}

// Load reads configuration from the given path, or from the first standard
// location that exists when path is empty, and finally applies environment
// overrides. A missing explicit path is an error; missing standard locations
// fall through to defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	} else if found := findConfigFile(); found != "" {
		if err := cfg.mergeFile(found); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()

	candidates := []string{
		filepath.Join(cwd, "reagent.yaml"),
		filepath.Join(cwd, ".reagent.yaml"),
		filepath.Join(home, ".reagent", "config.yaml"),
		filepath.Join(home, ".reagent.yaml"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// applyEnv overlays REAGENT_* environment variables. Environment always wins
// over file values so runs are reproducible from the environment alone.
func (c *Config) applyEnv() {
	if v := os.Getenv("REAGENT_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("REAGENT_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("REAGENT_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("REAGENT_LLM_MODEL"); v != "" {
		c.LLM.DefaultModel = v
	}
	if v := envInt("REAGENT_LLM_TIMEOUT"); v > 0 {
		c.LLM.TimeoutSeconds = v
	}
	if v := envInt("REAGENT_MAX_ITERATIONS"); v > 0 {
		c.Agent.MaxIterations = v
	}
	if v := envInt("REAGENT_MAX_BUDGET"); v > 0 {
		c.Agent.MaxBudget = v
	}
	if v := os.Getenv("REAGENT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("REAGENT_LOG_PATH"); v != "" {
		c.Logging.LogPath = v
	}
	if v := os.Getenv("REAGENT_TRANSCRIPT_DIR"); v != "" {
		c.Logging.TranscriptDir = v
	}
	if v := os.Getenv("REAGENT_TRANSCRIPTS"); v != "" {
		c.Logging.TranscriptsOn = strings.EqualFold(v, "true") || v == "1"
	}
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func (c *Config) validate() error {
	if c.Agent.MaxIterations <= 0 {
		return fmt.Errorf("agent.max_iterations must be positive, got %d", c.Agent.MaxIterations)
	}
	if c.Agent.MaxBudget < c.Agent.MaxIterations {
		return fmt.Errorf("agent.max_budget (%d) must be at least agent.max_iterations (%d)",
			c.Agent.MaxBudget, c.Agent.MaxIterations)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return fmt.Errorf("llm.timeout_seconds must be positive, got %d", c.LLM.TimeoutSeconds)
	}
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm.provider %q (expected openai or ollama)", c.LLM.Provider)
	}
	return nil
}
