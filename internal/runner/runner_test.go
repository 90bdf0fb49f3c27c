package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"splitmerge/internal/dispatch"
	"splitmerge/internal/history"
	"splitmerge/internal/services"
	"splitmerge/internal/splitmerge"
	"splitmerge/internal/testsupport"
)

const (
	splitMarker = "has been split into several parts"
	mergeMarker = "was carried out separately"
)

type providerStats struct {
	direct atomic.Int32
	chunks atomic.Int32
	merges atomic.Int32
}

// newProvider fakes a chat completions endpoint whose context window is too
// small for the unsplit prompt. chunkStatus controls chunk responses.
func newProvider(t *testing.T, stats *providerStats, chunkStatus int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		content := body.Messages[0].Content
		switch {
		case strings.Contains(content, mergeMarker):
			stats.merges.Add(1)
			writeChoice(w, "final answer")
		case strings.Contains(content, splitMarker):
			stats.chunks.Add(1)
			if chunkStatus != http.StatusOK {
				w.WriteHeader(chunkStatus)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream failure","type":"server_error"}}`))
				return
			}
			writeChoice(w, "part answer")
		default:
			stats.direct.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"max context length is 4096 tokens, requested 5000 to complete","type":"invalid_request_error","code":"context_length_exceeded"}}`))
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

func TestRunSplitMergeEndToEnd(t *testing.T) {
	stats := &providerStats{}
	server := newProvider(t, stats, http.StatusOK)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(server.URL),
		testsupport.WithContent(strings.Repeat("func f() {}\n", 250)),
	)

	report, err := Run(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Status() != history.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", report.Status(), report.FailureMessage())
	}
	if report.Text() != "final answer" {
		t.Fatalf("unexpected text %q", report.Text())
	}
	if !report.Result.Split || report.Result.Phase != splitmerge.PhaseMerge {
		t.Fatalf("expected merged split result, got %+v", report.Result)
	}
	if report.Result.Chunks < 2 || int(stats.chunks.Load()) != report.Result.Chunks {
		t.Fatalf("expected one request per chunk, result %d chunks, provider saw %d", report.Result.Chunks, stats.chunks.Load())
	}
	if stats.direct.Load() != 1 || stats.merges.Load() != 1 {
		t.Fatalf("expected one direct and one merge request, got %d and %d", stats.direct.Load(), stats.merges.Load())
	}
	if report.Result.Seed.TokensLimit != 4096 || report.Result.Seed.PromptTokens != 5000 {
		t.Fatalf("unexpected seed usage %+v", report.Result.Seed)
	}

	store := testsupport.MustOpenHistory(t, cfg)
	run, err := store.Get(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.Status != history.StatusCompleted || !run.Split || run.Chunks != report.Result.Chunks {
		t.Fatalf("unexpected history row %+v", run)
	}
	if run.ContentChars != 3000 || run.ContentDigest == "" {
		t.Fatalf("expected content metadata in history, got %+v", run)
	}
}

func TestRunChunkFailure(t *testing.T) {
	stats := &providerStats{}
	server := newProvider(t, stats, http.StatusInternalServerError)
	cfg := testsupport.NewConfig(t,
		testsupport.WithBaseURL(server.URL),
		testsupport.WithContent(strings.Repeat("x", 3000)),
	)

	report, err := Run(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	var chunkErr *splitmerge.ChunkFailureError
	if !errors.As(report.Err, &chunkErr) {
		t.Fatalf("expected ChunkFailureError, got %v", report.Err)
	}
	if report.Status() != history.StatusFailed {
		t.Fatalf("expected failed status, got %s", report.Status())
	}
	if !strings.HasPrefix(report.FailureMessage(), "chunk failure:") {
		t.Fatalf("unexpected failure message %q", report.FailureMessage())
	}
	if stats.merges.Load() != 0 {
		t.Fatal("merge must not run after a chunk failure")
	}

	run, err := testsupport.MustOpenHistory(t, cfg).Get(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("history Get: %v", err)
	}
	if run.Status != history.StatusFailed || !strings.Contains(run.Error, "chunk failure") {
		t.Fatalf("unexpected history row %+v", run)
	}
}

func TestRunOverloadedAfterRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(server.URL), testsupport.WithHistory(false))
	cfg.Retry.BaseDelayMS = 1000
	var delays []time.Duration
	report, err := Run(context.Background(), cfg, Options{
		Sleeper: func(d time.Duration) { delays = append(delays, d) },
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Status() != history.StatusOverloaded {
		t.Fatalf("expected overloaded, got %s", report.Status())
	}
	if report.FailureMessage() != "overloaded after retries" {
		t.Fatalf("unexpected failure message %q", report.FailureMessage())
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Fatalf("expected delays [1s 2s], got %v", delays)
	}
}

func TestRunHonoursExclusiveLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-acquire lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	if _, err := Run(context.Background(), cfg, Options{}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunRequiresContent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Prompts.ContentPath = ""
	_, err := Run(context.Background(), cfg, Options{})
	if !services.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRejectsBadTemplate(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithTemplate("no placeholder here"))
	_, err := Run(context.Background(), cfg, Options{})
	if !services.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRequiresAPIKeyWithoutCompleter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	_, err := Run(context.Background(), cfg, Options{})
	if !services.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestReportFailureMessage(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		status history.Status
		want   string
	}{
		{
			name:   "completed",
			report: Report{Result: splitmerge.Result{Outcome: dispatch.Completed("ok")}},
			status: history.StatusCompleted,
			want:   "",
		},
		{
			name:   "overloaded",
			report: Report{Result: splitmerge.Result{Outcome: dispatch.Overloaded()}},
			status: history.StatusOverloaded,
			want:   "overloaded after retries",
		},
		{
			name: "merge exceeded",
			report: Report{Result: splitmerge.Result{
				Phase:   splitmerge.PhaseMerge,
				Outcome: dispatch.Exceeded(dispatch.TokenUsage{TokensLimit: 4096, PromptTokens: 6000}),
			}},
			status: history.StatusExceeded,
			want:   "merged content exceeded token limit; recursive split is not supported (limit 4096, requested 6000)",
		},
		{
			name:   "unexpected",
			report: Report{Err: errors.New("boom")},
			status: history.StatusFailed,
			want:   "unexpected failure: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Status(); got != tt.status {
				t.Fatalf("expected status %s, got %s", tt.status, got)
			}
			if got := tt.report.FailureMessage(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestReadContentNormalizes(t *testing.T) {
	decomposed := "e\u0301te\u0301"
	cfg := testsupport.NewConfig(t, testsupport.WithContent(decomposed))
	raw, err := ReadContent(cfg.Prompts.ContentPath, false)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if raw != decomposed {
		t.Fatalf("expected raw content untouched, got %q", raw)
	}
	normalized, err := ReadContent(cfg.Prompts.ContentPath, true)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if normalized != "\u00e9t\u00e9" {
		t.Fatalf("expected NFC content, got %q", normalized)
	}
}
