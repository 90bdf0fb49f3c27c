package dispatch

import "fmt"

// Kind identifies which variant an Outcome holds.
type Kind int

const (
	// KindCompleted means the provider returned usable text.
	KindCompleted Kind = iota + 1
	// KindExceeded means the request did not fit the provider's context window.
	KindExceeded
	// KindOverloaded means the provider was rate limited or temporarily unavailable.
	KindOverloaded
)

func (k Kind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindExceeded:
		return "exceeded"
	case KindOverloaded:
		return "overloaded"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TokenUsage is the provider's accounting for an Exceeded request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TokensLimit      int
}

// Outcome is the closed result of a single dispatch. Text is set only for
// KindCompleted, Usage only for KindExceeded.
type Outcome struct {
	Kind  Kind
	Text  string
	Usage TokenUsage
}

// Completed builds a successful outcome.
func Completed(text string) Outcome {
	return Outcome{Kind: KindCompleted, Text: text}
}

// Exceeded builds a context-window outcome carrying the reported usage.
func Exceeded(usage TokenUsage) Outcome {
	return Outcome{Kind: KindExceeded, Usage: usage}
}

// Overloaded builds a transient-overload outcome.
func Overloaded() Outcome {
	return Outcome{Kind: KindOverloaded}
}

func (o Outcome) IsCompleted() bool  { return o.Kind == KindCompleted }
func (o Outcome) IsExceeded() bool   { return o.Kind == KindExceeded }
func (o Outcome) IsOverloaded() bool { return o.Kind == KindOverloaded }

func (o Outcome) String() string {
	switch o.Kind {
	case KindExceeded:
		return fmt.Sprintf("exceeded (limit %d, prompt %d, completion %d)",
			o.Usage.TokensLimit, o.Usage.PromptTokens, o.Usage.CompletionTokens)
	default:
		return o.Kind.String()
	}
}
