package history

import "time"

// Status is the final state of a run.
type Status string

const (
	StatusRunning    Status = "running"
	StatusCompleted  Status = "completed"
	StatusOverloaded Status = "overloaded"
	StatusExceeded   Status = "exceeded"
	StatusFailed     Status = "failed"
)

// Start describes a run as it begins. Content is hashed and measured but
// never stored.
type Start struct {
	ID           string
	Model        string
	TemplateName string
	ContentPath  string
	Content      string
}

// Finish describes how a run ended.
type Finish struct {
	Status           Status
	Phase            string
	Split            bool
	Chunks           int
	ChunkChars       int
	PromptTokens     int
	CompletionTokens int
	TokensLimit      int
	Error            string
}

// Run is one row of the ledger.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	Model            string
	TemplateName     string
	ContentPath      string
	ContentChars     int
	ContentDigest    string
	Status           Status
	Phase            string
	Split            bool
	Chunks           int
	ChunkChars       int
	PromptTokens     int
	CompletionTokens int
	TokensLimit      int
	Error            string
}

// Duration returns the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
