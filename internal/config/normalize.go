package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizePrompts(); err != nil {
		return err
	}
	c.normalizeSplit()
	c.normalizeRetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = envOverride(c.LLM.APIKey, "LLM_API_KEY", "OPENAI_API_KEY")
	c.LLM.Model = envOverride(c.LLM.Model, "LLM_MODEL")
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModel
	}
	c.LLM.AzureEndpoint = envOverride(c.LLM.AzureEndpoint, "AZURE_ENDPOINT")
	c.LLM.AzureAPIVersion = strings.TrimSpace(c.LLM.AzureAPIVersion)
	if c.LLM.AzureAPIVersion == "" {
		c.LLM.AzureAPIVersion = defaultAzureAPIVersion
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultOpenAIBaseURL
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultTimeoutSeconds
	}
}

// envOverride returns the first non-blank value among keys, or the trimmed
// file value when none is set. Environment variables always win over the file.
func envOverride(fileValue string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return strings.TrimSpace(fileValue)
}

func (c *Config) normalizePrompts() error {
	var err error
	if strings.TrimSpace(c.Prompts.TemplatePath) == "" {
		c.Prompts.TemplatePath = defaultTemplatePath
	}
	if c.Prompts.TemplatePath, err = expandPath(strings.TrimSpace(c.Prompts.TemplatePath)); err != nil {
		return fmt.Errorf("prompts.template_path: %w", err)
	}
	if c.Prompts.SplitWrapperPath, err = expandPath(strings.TrimSpace(c.Prompts.SplitWrapperPath)); err != nil {
		return fmt.Errorf("prompts.split_wrapper_path: %w", err)
	}
	if c.Prompts.MergeWrapperPath, err = expandPath(strings.TrimSpace(c.Prompts.MergeWrapperPath)); err != nil {
		return fmt.Errorf("prompts.merge_wrapper_path: %w", err)
	}
	content := envOverride(c.Prompts.ContentPath, "FILEPATH")
	if c.Prompts.ContentPath, err = expandPath(content); err != nil {
		return fmt.Errorf("prompts.content_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSplit() {
	if c.Split.Separator == "" {
		c.Split.Separator = defaultSeparator
	}
	if c.Split.MaxParallel < 0 {
		c.Split.MaxParallel = 0
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaultRetryMaxAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
