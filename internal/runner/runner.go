package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"splitmerge/internal/budget"
	"splitmerge/internal/chunk"
	"splitmerge/internal/config"
	"splitmerge/internal/dispatch"
	"splitmerge/internal/history"
	"splitmerge/internal/logging"
	"splitmerge/internal/prompt"
	"splitmerge/internal/retry"
	"splitmerge/internal/services"
	"splitmerge/internal/services/llm"
	"splitmerge/internal/splitmerge"
)

// ErrLocked is returned when another exclusive run holds the state directory lock.
var ErrLocked = errors.New("another splitmerge run is already in progress")

// Options override configuration for a single run.
type Options struct {
	ContentPath  string
	TemplatePath string
	Logger       *slog.Logger
	// Completer replaces the configured provider client.
	Completer dispatch.Completer
	// Sleeper replaces retry waits.
	Sleeper func(time.Duration)
}

// Report is the outcome of one run. Err holds orchestration failures; setup
// failures are returned by Run directly.
type Report struct {
	RunID  string
	Result splitmerge.Result
	Err    error
}

// Status maps the report onto one of the four end states.
func (r *Report) Status() history.Status {
	if r == nil || r.Err != nil {
		return history.StatusFailed
	}
	switch r.Result.Outcome.Kind {
	case dispatch.KindCompleted:
		return history.StatusCompleted
	case dispatch.KindOverloaded:
		return history.StatusOverloaded
	case dispatch.KindExceeded:
		return history.StatusExceeded
	default:
		return history.StatusFailed
	}
}

// Text returns the completion text of a successful run.
func (r *Report) Text() string {
	if r == nil || !r.Result.Outcome.IsCompleted() {
		return ""
	}
	return r.Result.Outcome.Text
}

// FailureMessage describes a non-successful run for the operator. It is empty
// for completed runs.
func (r *Report) FailureMessage() string {
	if r == nil {
		return "no report"
	}
	var chunkErr *splitmerge.ChunkFailureError
	switch {
	case errors.As(r.Err, &chunkErr):
		return "chunk failure: " + chunkErr.Error()
	case r.Err != nil:
		return "unexpected failure: " + r.Err.Error()
	}
	usage := r.Result.Outcome.Usage
	switch r.Status() {
	case history.StatusCompleted:
		return ""
	case history.StatusOverloaded:
		return "overloaded after retries"
	case history.StatusExceeded:
		if r.Result.Phase == splitmerge.PhaseMerge {
			return fmt.Sprintf("merged content exceeded token limit; recursive split is not supported (limit %d, requested %d)",
				usage.TokensLimit, usage.PromptTokens)
		}
		return fmt.Sprintf("exceeded token limit (limit %d, requested %d)", usage.TokensLimit, usage.PromptTokens)
	default:
		return "unexpected failure: no outcome"
	}
}

// Run performs one complete orchestration: load inputs, dispatch with
// split/merge fallback, and record the run in history.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Report, error) {
	if cfg == nil {
		return nil, errors.New("runner: config required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "runner")

	contentPath := firstNonEmpty(opts.ContentPath, cfg.Prompts.ContentPath)
	if contentPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "resolve content", "content file required (argument, prompts.content_path or FILEPATH)", nil)
	}
	templatePath := firstNonEmpty(opts.TemplatePath, cfg.Prompts.TemplatePath)

	if cfg.Runtime.Exclusive {
		unlock, err := acquireLock(cfg)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	tmpl, err := prompt.Load(templatePath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "load template", templatePath, err)
	}
	splitWrapper, err := prompt.LoadOrDefault(cfg.Prompts.SplitWrapperPath, prompt.DefaultSplitWrapper())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "load split wrapper", cfg.Prompts.SplitWrapperPath, err)
	}
	mergeWrapper, err := prompt.LoadOrDefault(cfg.Prompts.MergeWrapperPath, prompt.DefaultMergeWrapper())
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "load merge wrapper", cfg.Prompts.MergeWrapperPath, err)
	}
	content, err := ReadContent(contentPath, cfg.Split.NormalizeUnicode)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "runner", "read content", contentPath, err)
	}

	completer := opts.Completer
	if completer == nil {
		if err := cfg.ValidateProvider(); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "runner", "validate provider", "", err)
		}
		llmCfg := cfg.GetLLM()
		completer = llm.NewClient(llm.Config{
			APIKey:          llmCfg.APIKey,
			BaseURL:         llmCfg.BaseURL,
			AzureEndpoint:   llmCfg.AzureEndpoint,
			AzureAPIVersion: llmCfg.AzureAPIVersion,
			Model:           llmCfg.Model,
			TimeoutSeconds:  llmCfg.TimeoutSeconds,
		})
	}

	report := &Report{RunID: uuid.NewString()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger = logging.WithContext(ctx, logger)

	ledger := openLedger(ctx, cfg, logger, history.Start{
		ID:           report.RunID,
		Model:        cfg.LLM.Model,
		TemplateName: tmpl.Name(),
		ContentPath:  contentPath,
		Content:      content,
	})
	defer ledger.close()

	temperature := cfg.LLM.Temperature
	dispatcher := dispatch.New(completer, dispatch.Options{
		Model:       cfg.LLM.Model,
		Temperature: &temperature,
		Logger:      opts.Logger,
	})
	fn := dispatch.WithRetry(dispatcher.Dispatch, retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		Logger:      logging.NewComponentLogger(opts.Logger, "retry"),
		Sleeper:     opts.Sleeper,
	})
	orchestrator := splitmerge.New(fn, splitmerge.Options{
		Budget:       BudgetParams(cfg),
		SplitWrapper: splitWrapper,
		MergeWrapper: mergeWrapper,
		MaxParallel:  cfg.Split.MaxParallel,
		Separator:    cfg.Split.Separator,
		Logger:       opts.Logger,
	})

	logger.Info("run started",
		logging.String("model", cfg.LLM.Model),
		logging.String("template", tmpl.Name()),
		logging.String("content_path", contentPath),
		logging.Int("content_chars", chunk.Len(content)),
	)
	started := time.Now()
	report.Result, report.Err = orchestrator.Run(ctx, splitmerge.Request{Template: tmpl, Content: content})

	ledger.finish(ctx, report)
	attrs := []logging.Attr{
		logging.String("status", string(report.Status())),
		logging.String("phase", string(report.Result.Phase)),
		logging.Bool("split", report.Result.Split),
		logging.Int("chunks", report.Result.Chunks),
		logging.Duration("elapsed", time.Since(started)),
	}
	if report.Status() == history.StatusCompleted {
		logger.Info("run finished", logging.Args(attrs...)...)
	} else {
		attrs = append(attrs,
			logging.String("reason", report.FailureMessage()),
			logging.String(logging.FieldImpact, "no completion produced"),
		)
		logging.WarnWithContext(logger, "run did not complete", "run_failed", attrs...)
	}
	return report, nil
}

// BudgetParams converts the split settings into estimator parameters.
func BudgetParams(cfg *config.Config) budget.Params {
	return budget.Params{
		SafetyPercent:               float64(cfg.Split.SafetyPercent),
		ReservedCompletionMinTokens: cfg.Split.ReservedCompletionMinTokens,
		CompletionTokenMinRatio:     float64(cfg.Split.CompletionTokenMinRatio),
	}
}

// ReadContent reads a UTF-8 content file, optionally applying NFC normalization.
func ReadContent(path string, normalize bool) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if normalize {
		content = norm.NFC.String(content)
	}
	return content, nil
}

func acquireLock(cfg *config.Config) (func(), error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, cfg.LockPath())
	}
	return func() { _ = lock.Unlock() }, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
