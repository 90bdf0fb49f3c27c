package runner

import (
	"context"
	"log/slog"

	"splitmerge/internal/config"
	"splitmerge/internal/history"
	"splitmerge/internal/logging"
)

// ledger records a run in history. Ledger failures are logged and never
// fail the run.
type ledger struct {
	store  *history.Store
	runID  string
	logger *slog.Logger
}

func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger, start history.Start) *ledger {
	l := &ledger{logger: logger}
	if !cfg.History.Enabled {
		return l
	}
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the history database or disable history.enabled"),
			logging.String(logging.FieldImpact, "run will not be recorded"),
		)
		return l
	}
	run, err := store.Begin(ctx, start)
	if err != nil {
		_ = store.Close()
		logging.WarnWithContext(logger, "history record failed", "history_begin_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run will not be recorded"),
		)
		return l
	}
	l.store = store
	l.runID = run.ID
	return l
}

func (l *ledger) finish(ctx context.Context, report *Report) {
	if l == nil || l.store == nil {
		return
	}
	finish := history.Finish{
		Status:           report.Status(),
		Phase:            string(report.Result.Phase),
		Split:            report.Result.Split,
		Chunks:           report.Result.Chunks,
		ChunkChars:       report.Result.ChunkChars,
		PromptTokens:     report.Result.Seed.PromptTokens,
		CompletionTokens: report.Result.Seed.CompletionTokens,
		TokensLimit:      report.Result.Seed.TokensLimit,
	}
	if finish.Status != history.StatusCompleted {
		finish.Error = report.FailureMessage()
	}
	if err := l.store.Finish(context.WithoutCancel(ctx), l.runID, finish); err != nil {
		logging.WarnWithContext(l.logger, "history update failed", "history_finish_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run left as running in history"),
		)
	}
}

func (l *ledger) close() {
	if l == nil || l.store == nil {
		return
	}
	_ = l.store.Close()
}
