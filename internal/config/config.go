package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// LLM contains the provider connection settings.
type LLM struct {
	APIKey          string  `toml:"api_key"`
	BaseURL         string  `toml:"base_url"`
	AzureEndpoint   string  `toml:"azure_endpoint"`
	AzureAPIVersion string  `toml:"azure_api_version"`
	Model           string  `toml:"model"`
	Temperature     float64 `toml:"temperature"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Prompts contains the template and content locations.
type Prompts struct {
	TemplatePath     string `toml:"template_path"`
	SplitWrapperPath string `toml:"split_wrapper_path"` // empty uses the built-in wrapper
	MergeWrapperPath string `toml:"merge_wrapper_path"` // empty uses the built-in wrapper
	ContentPath      string `toml:"content_path"`
}

// Split contains the chunk budgeting and fan-out settings.
type Split struct {
	// MaxParallel caps concurrent chunk dispatches. 0 removes the cap.
	MaxParallel                 int    `toml:"max_parallel"`
	Separator                   string `toml:"separator"`
	SafetyPercent               int    `toml:"safety_percent"`
	ReservedCompletionMinTokens int    `toml:"reserved_completion_min_tokens"`
	CompletionTokenMinRatio     int    `toml:"completion_token_min_ratio"`
	NormalizeUnicode            bool   `toml:"normalize_unicode"`
}

// Retry contains the overload retry settings.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
}

// History contains run ledger settings.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Runtime contains process-level behaviour.
type Runtime struct {
	// Exclusive serializes runs sharing the same state directory.
	Exclusive bool `toml:"exclusive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"` // 0 keeps every daily log file
}

// Config encapsulates all configuration values for splitmerge.
//
// Configuration sections by subsystem:
//   - Paths: state directory (history database, run lock, logs)
//   - LLM: provider endpoint, credentials, model and sampling temperature
//   - Prompts: base template, wrapper templates and default content file
//   - Split: chunk budget constants and fan-out ceiling
//   - Retry: overload retry attempts and linear backoff base
//   - History: run ledger toggle
//   - Runtime: single-run locking
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	LLM     LLM     `toml:"llm"`
	Prompts Prompts `toml:"prompts"`
	Split   Split   `toml:"split"`
	Retry   Retry   `toml:"retry"`
	History History `toml:"history"`
	Runtime Runtime `toml:"runtime"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("splitmerge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogDir returns the directory that receives log files.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

// HistoryPath returns the run ledger database path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the exclusive run lock path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "splitmerge.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the provider settings handed to the client.
type LLMConfig struct {
	APIKey          string
	BaseURL         string
	AzureEndpoint   string
	AzureAPIVersion string
	Model           string
	TimeoutSeconds  int
}

// GetLLM returns the provider connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:          strings.TrimSpace(c.LLM.APIKey),
		BaseURL:         strings.TrimSpace(c.LLM.BaseURL),
		AzureEndpoint:   strings.TrimSpace(c.LLM.AzureEndpoint),
		AzureAPIVersion: strings.TrimSpace(c.LLM.AzureAPIVersion),
		Model:           strings.TrimSpace(c.LLM.Model),
		TimeoutSeconds:  c.LLM.TimeoutSeconds,
	}
}

// RetryBaseDelay returns the linear backoff base as a duration.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}
