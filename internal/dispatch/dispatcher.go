package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"splitmerge/internal/logging"
	"splitmerge/internal/retry"
	"splitmerge/internal/services/llm"
)

// DefaultTemperature keeps completions deterministic-leaning.
const DefaultTemperature = 0.1

// ErrEmptyCompletion is returned when the provider answers without any choice.
var ErrEmptyCompletion = errors.New("empty completion")

// Completer is the provider capability the dispatcher needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Func sends one prompt and classifies the answer.
type Func func(ctx context.Context, prompt string) (Outcome, error)

// Options configure a Dispatcher.
type Options struct {
	Model string
	// Temperature defaults to DefaultTemperature when nil.
	Temperature *float64
	Classifier  ErrorClassifier
	Logger      *slog.Logger
}

// Dispatcher sends single-message prompts and turns responses and provider
// errors into Outcomes.
type Dispatcher struct {
	completer   Completer
	model       string
	temperature float64
	classifier  ErrorClassifier
	logger      *slog.Logger
}

// New constructs a dispatcher around the supplied completer.
func New(completer Completer, opts Options) *Dispatcher {
	d := &Dispatcher{
		completer:   completer,
		model:       opts.Model,
		temperature: DefaultTemperature,
		classifier:  opts.Classifier,
		logger:      logging.NewComponentLogger(opts.Logger, "dispatch"),
	}
	if opts.Temperature != nil {
		d.temperature = *opts.Temperature
	}
	if d.classifier == nil {
		d.classifier = OpenAIClassifier{}
	}
	return d
}

// Dispatch sends prompt as a single user message.
func (d *Dispatcher) Dispatch(ctx context.Context, prompt string) (Outcome, error) {
	if d == nil || d.completer == nil {
		return Outcome{}, errors.New("dispatch: completer unavailable")
	}
	logger := logging.WithContext(ctx, d.logger)
	logger.Debug("dispatching prompt", logging.Int("prompt_chars", len([]rune(prompt))))

	resp, err := d.completer.Complete(ctx, llm.Request{
		Model:       d.model,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: d.temperature,
	})
	if err != nil {
		outcome, classifyErr := d.classifier.Classify(err)
		if classifyErr != nil {
			return Outcome{}, classifyErr
		}
		logger.Info("provider error classified",
			logging.String("outcome", outcome.String()),
			logging.Error(err),
		)
		return outcome, nil
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Outcome{}, ErrEmptyCompletion
	}
	choice := resp.Choices[0]
	if choice.FinishReason == llm.FinishReasonLength {
		outcome := Exceeded(TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TokensLimit:      resp.Usage.TotalTokens,
		})
		logger.Info("completion truncated by length", logging.String("outcome", outcome.String()))
		return outcome, nil
	}
	return Completed(choice.Message.Content), nil
}

// WithRetry wraps fn so Overloaded outcomes are retried under policy.
func WithRetry(fn Func, policy retry.Policy) Func {
	return func(ctx context.Context, prompt string) (Outcome, error) {
		return retry.Do(ctx, policy, func(ctx context.Context) (Outcome, error) {
			return fn(ctx, prompt)
		}, Outcome.IsOverloaded)
	}
}
