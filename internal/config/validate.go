package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}

// ValidateProvider ensures credentials are present before any provider call.
// Commands that never reach the provider (estimate, history) skip this check.
func (c *Config) ValidateProvider() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set LLM_API_KEY env var or edit %s (create with 'splitmerge config init')", defaultPath)
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		return errors.New("llm.model must be set (or set LLM_MODEL)")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if endpoint := strings.TrimSpace(c.LLM.AzureEndpoint); endpoint != "" {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("llm.azure_endpoint %q must be an absolute URL", endpoint)
		}
	}
	return nil
}

func (c *Config) validateSplit() error {
	if c.Split.SafetyPercent < 0 || c.Split.SafetyPercent >= 100 {
		return errors.New("split.safety_percent must be between 0 and 99")
	}
	if c.Split.ReservedCompletionMinTokens < 0 {
		return errors.New("split.reserved_completion_min_tokens must be >= 0")
	}
	if c.Split.CompletionTokenMinRatio < 0 {
		return errors.New("split.completion_token_min_ratio must be >= 0")
	}
	if c.Split.MaxParallel < 0 {
		return errors.New("split.max_parallel must be >= 0")
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be positive")
	}
	if c.Retry.BaseDelayMS < 0 {
		return errors.New("retry.base_delay_ms must be >= 0")
	}
	return nil
}
