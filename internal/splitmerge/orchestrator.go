package splitmerge

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"splitmerge/internal/budget"
	"splitmerge/internal/chunk"
	"splitmerge/internal/dispatch"
	"splitmerge/internal/logging"
	"splitmerge/internal/prompt"
	"splitmerge/internal/services"
)

// DefaultSeparator is placed before every chunk answer in the merge prompt.
const DefaultSeparator = "\n\n-----\n\n"

// Phase names the dispatch that produced the final outcome.
type Phase string

const (
	PhaseDirect Phase = "direct"
	PhaseMerge  Phase = "merge"
)

const (
	stageDirect = "direct"
	stageSplit  = "split"
	stageMerge  = "merge"
)

// Options configure an Orchestrator.
type Options struct {
	// Budget is used as given; start from budget.DefaultParams.
	Budget       budget.Params
	SplitWrapper prompt.Template
	MergeWrapper prompt.Template
	// MaxParallel bounds concurrent chunk dispatches; 0 means one goroutine per chunk.
	MaxParallel int
	Separator   string
	Logger      *slog.Logger
}

// Request is one top-level prompt.
type Request struct {
	Template prompt.Template
	Content  string
}

// ChunkJob is the prompt sent for one chunk.
type ChunkJob struct {
	Index  int
	Text   string
	Prompt string
}

// Result describes how the final outcome was reached.
type Result struct {
	Outcome    dispatch.Outcome
	Phase      Phase
	Split      bool
	ChunkChars int
	Chunks     int
	// Seed is the usage reported by the rejected direct request.
	Seed     dispatch.TokenUsage
	Estimate budget.Estimate
}

// Orchestrator runs the direct dispatch and, when the content does not fit,
// the split, fan-out and merge steps.
type Orchestrator struct {
	dispatch     dispatch.Func
	params       budget.Params
	splitWrapper prompt.Template
	mergeWrapper prompt.Template
	maxParallel  int
	separator    string
	logger       *slog.Logger
}

// New builds an orchestrator. fn should already apply the retry policy.
func New(fn dispatch.Func, opts Options) *Orchestrator {
	o := &Orchestrator{
		dispatch:     fn,
		params:       opts.Budget,
		splitWrapper: opts.SplitWrapper,
		mergeWrapper: opts.MergeWrapper,
		maxParallel:  opts.MaxParallel,
		separator:    opts.Separator,
		logger:       logging.NewComponentLogger(opts.Logger, "orchestrator"),
	}
	if o.splitWrapper.Text() == "" {
		o.splitWrapper = prompt.DefaultSplitWrapper()
	}
	if o.mergeWrapper.Text() == "" {
		o.mergeWrapper = prompt.DefaultMergeWrapper()
	}
	if o.separator == "" {
		o.separator = DefaultSeparator
	}
	if o.maxParallel < 0 {
		o.maxParallel = 0
	}
	return o
}

// Run dispatches the rendered prompt and falls back to split/merge when the
// provider reports the context window was exceeded.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if o == nil || o.dispatch == nil {
		return Result{}, errors.New("splitmerge: dispatch unavailable")
	}
	if req.Template.Text() == "" {
		return Result{}, errors.New("splitmerge: template required")
	}

	directCtx := services.WithStage(ctx, stageDirect)
	logging.WithContext(directCtx, o.logger).Info("dispatching prompt",
		logging.Int("content_chars", chunk.Len(req.Content)),
		logging.String("template", req.Template.Name()),
	)
	outcome, err := o.dispatch(directCtx, req.Template.Render(req.Content))
	if err != nil {
		return Result{Phase: PhaseDirect}, err
	}
	if !outcome.IsExceeded() {
		return Result{Outcome: outcome, Phase: PhaseDirect}, nil
	}

	result := Result{Phase: PhaseDirect, Split: true, Seed: outcome.Usage}
	jobs := o.plan(ctx, req, outcome.Usage, &result)
	outputs, err := o.fanOut(ctx, jobs)
	if err != nil {
		return result, err
	}
	result.Phase = PhaseMerge
	result.Outcome, err = o.merge(ctx, req.Template, outputs)
	return result, err
}

// Plan computes the chunk jobs for content that exceeded the context window
// with the given usage. It performs no dispatch.
func (o *Orchestrator) Plan(req Request, usage dispatch.TokenUsage) ([]ChunkJob, budget.Estimate) {
	var result Result
	jobs := o.plan(context.Background(), req, usage, &result)
	return jobs, result.Estimate
}

func (o *Orchestrator) plan(ctx context.Context, req Request, usage dispatch.TokenUsage, result *Result) []ChunkJob {
	est := budget.Calculate(budget.Input{
		ContentChars:     chunk.Len(req.Content),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TokensLimit:      usage.TokensLimit,
		TemplateChars:    req.Template.Chars(),
		WrapperChars:     o.splitWrapper.Chars(),
		PlaceholderChars: prompt.PlaceholderChars(),
	}, o.params)
	pieces := chunk.Split(req.Content, est.ChunkChars)

	result.Estimate = est
	result.ChunkChars = est.ChunkChars
	result.Chunks = len(pieces)

	logging.WithContext(services.WithStage(ctx, stageSplit), o.logger).Info("splitting content",
		logging.Int("tokens_limit", usage.TokensLimit),
		logging.Int("prompt_tokens", usage.PromptTokens),
		logging.Int("completion_tokens", usage.CompletionTokens),
		logging.Float64("chars_per_token", est.CharsPerToken),
		logging.Int("chunk_chars", est.ChunkChars),
		logging.Int("chunks", len(pieces)),
	)

	jobs := make([]ChunkJob, len(pieces))
	for i, piece := range pieces {
		jobs[i] = ChunkJob{
			Index:  i,
			Text:   piece,
			Prompt: o.splitWrapper.Render(req.Template.Render(piece)),
		}
	}
	return jobs
}

type chunkResult struct {
	outcome dispatch.Outcome
	err     error
}

// fanOut dispatches every job and waits for all of them. Outputs are returned
// in job order; any non-completed chunk fails the whole step.
func (o *Orchestrator) fanOut(ctx context.Context, jobs []ChunkJob) ([]string, error) {
	splitCtx := services.WithStage(ctx, stageSplit)
	results := make([]chunkResult, len(jobs))

	limit := o.maxParallel
	if limit == 0 || limit > len(jobs) {
		limit = len(jobs)
	}
	semaphore := make(chan struct{}, max(limit, 1))
	progress := logging.NewProgressSampler(len(jobs), 25)

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, job ChunkJob) {
			defer wg.Done()
			chunkCtx := services.WithChunk(splitCtx, idx+1, len(jobs))

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-chunkCtx.Done():
				results[idx] = chunkResult{err: chunkCtx.Err()}
				return
			}

			logging.WithContext(chunkCtx, o.logger).Debug("dispatching chunk",
				logging.Int("chunk_chars", chunk.Len(job.Text)),
			)
			outcome, err := o.dispatch(chunkCtx, job.Prompt)
			results[idx] = chunkResult{outcome: outcome, err: err}
			if done, percent, ok := progress.Observe(); ok {
				logging.WithContext(splitCtx, o.logger).Info("chunk progress",
					logging.Int("done", done),
					logging.Int(logging.FieldChunkCount, len(jobs)),
					logging.Float64("percent", percent),
				)
			}
		}(i, job)
	}
	wg.Wait()

	outputs := make([]string, len(jobs))
	var failures []ChunkFailure
	for i, r := range results {
		if r.err == nil && r.outcome.IsCompleted() {
			outputs[i] = r.outcome.Text
			continue
		}
		failure := ChunkFailure{Number: i + 1, Outcome: r.outcome, Err: r.err}
		failures = append(failures, failure)
		logging.WarnWithContext(
			logging.WithContext(services.WithChunk(splitCtx, i+1, len(jobs)), o.logger),
			"chunk did not complete",
			"chunk_failed",
			logging.String("reason", failure.reason()),
			logging.String(logging.FieldErrorHint, "reduce split.max_parallel or retry later"),
			logging.String(logging.FieldImpact, "merge abandoned"),
		)
	}
	if len(failures) > 0 {
		return nil, &ChunkFailureError{Total: len(jobs), Failures: failures}
	}
	return outputs, nil
}

// MergePrompt builds the final prompt from the raw template text followed by
// every chunk answer, each preceded by the separator.
func (o *Orchestrator) MergePrompt(tmpl prompt.Template, outputs []string) string {
	var b strings.Builder
	b.WriteString(tmpl.Text())
	for _, out := range outputs {
		b.WriteString(o.separator)
		b.WriteString(out)
	}
	return o.mergeWrapper.Render(b.String())
}

func (o *Orchestrator) merge(ctx context.Context, tmpl prompt.Template, outputs []string) (dispatch.Outcome, error) {
	mergeCtx := services.WithStage(ctx, stageMerge)
	logger := logging.WithContext(mergeCtx, o.logger)
	logger.Info("merging chunk outputs", logging.Int("chunks", len(outputs)))

	outcome, err := o.dispatch(mergeCtx, o.MergePrompt(tmpl, outputs))
	if err != nil {
		return outcome, err
	}
	if outcome.IsExceeded() {
		logging.WarnWithContext(logger, "merged content exceeded token limit", "merge_exceeded",
			logging.String("outcome", outcome.String()),
			logging.String(logging.FieldErrorHint, "recursive split is not supported; shorten the prompt template or use a model with a larger context"),
			logging.String(logging.FieldImpact, "no merged result"),
		)
	}
	return outcome, nil
}
