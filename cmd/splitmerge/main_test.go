package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"splitmerge/internal/config"
	"splitmerge/internal/history"
	"splitmerge/internal/testsupport"
)

const (
	splitMarker = "has been split into several parts"
	mergeMarker = "was carried out separately"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	server     *httptest.Server
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	clearProviderEnv(t)

	server := newFakeProvider(t)
	opts = append([]testsupport.ConfigOption{testsupport.WithBaseURL(server.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		baseDir:    base,
		server:     server,
	}
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"LLM_API_KEY", "OPENAI_API_KEY", "LLM_MODEL", "AZURE_ENDPOINT", "FILEPATH"} {
		t.Setenv(key, "")
	}
}

// newFakeProvider rejects unsplit prompts as too long and answers chunk and
// merge prompts.
func newFakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Messages) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content := body.Messages[0].Content
		switch {
		case strings.Contains(content, mergeMarker):
			writeChoice(w, "final answer")
		case strings.Contains(content, splitMarker):
			writeChoice(w, "part answer")
		case len(content) > 2000:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"max context length is 4096 tokens, requested 5000 to complete","type":"invalid_request_error","code":"context_length_exceeded"}}`))
		default:
			writeChoice(w, "ok")
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeChoice(w http.ResponseWriter, text string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []any{map[string]any{
			"message":       map[string]any{"role": "assistant", "content": text},
			"finish_reason": "stop",
		}},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12},
	})
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q\noutput:\n%s", substr, output)
	}
}

func TestCLIRunDirect(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "ok\n" {
		t.Fatalf("unexpected stdout %q", out)
	}
}

func TestCLIRunSplitsAndWritesOutput(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithContent(strings.Repeat("func f() {}\n", 250)))
	target := filepath.Join(env.baseDir, "out", "answer.txt")

	out, stderr, err := runCLI(t, []string{"run", "--output", target}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty stdout when writing a file, got %q", out)
	}
	requireContains(t, stderr, "[OK] wrote "+target)
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "final answer" {
		t.Fatalf("unexpected output file %q", data)
	}
}

func TestCLIRunMissingContent(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"run", filepath.Join(env.baseDir, "missing.txt")}, env.configPath)
	if err == nil {
		t.Fatal("expected error for missing content file")
	}
	var stderr bytes.Buffer
	if code := reportError(&stderr, err); code != exitConfig {
		t.Fatalf("expected exit code %d, got %d", exitConfig, code)
	}
	requireContains(t, stderr.String(), "missing.txt")
	requireContains(t, stderr.String(), "config validate")
}

func TestReportErrorExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	if code := reportError(&stderr, errors.New("provider check failed")); code != exitFailure {
		t.Fatalf("expected exit code %d, got %d", exitFailure, code)
	}
	if strings.Contains(stderr.String(), "hint:") {
		t.Fatalf("unexpected hint for runtime failure: %q", stderr.String())
	}

	stderr.Reset()
	if code := reportError(&stderr, fmt.Errorf("run: %w", context.Canceled)); code != exitFailure {
		t.Fatalf("expected exit code %d for cancellation, got %d", exitFailure, code)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected silent cancellation, got %q", stderr.String())
	}
}

func TestCLIEstimate(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithContent(strings.Repeat("func f() {}\n", 250)))

	out, _, err := runCLI(t, []string{"estimate", "--tokens-limit", "4096", "--prompt-tokens", "5000", "--chunks"}, env.configPath)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	requireContains(t, out, "Chunk chars")
	requireContains(t, out, "748")
	requireContains(t, out, "Prompt Chars")

	fromErr, _, err := runCLI(t, []string{"estimate", "--from-error", "max context length is 4096 tokens, requested 5000 to complete"}, env.configPath)
	if err != nil {
		t.Fatalf("estimate --from-error: %v", err)
	}
	requireContains(t, fromErr, "748")
}

func TestCLIEstimateRequiresFigures(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"estimate"}, env.configPath); err == nil {
		t.Fatal("expected error without token figures")
	}
	if _, _, err := runCLI(t, []string{"estimate", "--from-error", "something unrelated"}, env.configPath); err == nil {
		t.Fatal("expected error for unparseable provider message")
	}
}

func TestCLIHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != history.StatusCompleted {
		t.Fatalf("expected one completed run, got %+v", runs)
	}
	id := runs[0].ID

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, shortID(id))
	requireContains(t, out, "completed")

	out, _, err = runCLI(t, []string{"history", "show", shortID(id)}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, id)
	requireContains(t, out, runs[0].ContentDigest)

	out, _, err = runCLI(t, []string{"history", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 run(s)")

	out, _, err = runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	requireContains(t, out, "No runs recorded")
}

func TestCLIHistoryShowUnknown(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"history", "show", "nope"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	templatePath := filepath.Join(tmp, "prompts", "sample.prompt")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target, "--template", templatePath}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireContains(t, out, "LLM_API_KEY")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	data, err := os.ReadFile(templatePath)
	if err != nil {
		t.Fatalf("expected sample template: %v", err)
	}
	requireContains(t, string(data), "{content}")

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.LLM.APIKey = "sk-test-secret-value"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[llm]")
	requireContains(t, out, "sk-t...alue")
	if strings.Contains(out, "secret") {
		t.Fatalf("api key leaked in output:\n%s", out)
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "[OK] configured")
	requireContains(t, out, "[OK] responded in")
}

func TestCheckCommandMissingKey(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.LLM.APIKey = ""
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail without an api key")
	}
	requireContains(t, out, "[ERROR] llm.api_key is required")
}
