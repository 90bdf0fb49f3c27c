package testsupport

import (
	"path/filepath"
	"testing"

	"splitmerge/internal/config"
	"splitmerge/internal/prompt"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The base template is the embedded sample and the content file holds a short
// document; both live under the temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Prompts.TemplatePath = WriteFile(t, filepath.Join(base, "prompts", "sample.prompt"), prompt.SampleTemplate().Text())
	cfgVal.Prompts.ContentPath = WriteFile(t, filepath.Join(base, "content.txt"), "package main\n\nfunc main() {}\n")
	cfgVal.Retry.BaseDelayMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBaseURL points the provider client at url (usually an httptest server).
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithContent replaces the content file's text.
func WithContent(text string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Prompts.ContentPath = WriteFile(b.t, filepath.Join(b.baseDir, "content.txt"), text)
	}
}

// WithTemplate replaces the base template's text.
func WithTemplate(text string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Prompts.TemplatePath = WriteFile(b.t, filepath.Join(b.baseDir, "prompts", "custom.prompt"), text)
	}
}

// WithHistory toggles the run ledger.
func WithHistory(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
