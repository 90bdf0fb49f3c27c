package dispatch

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"splitmerge/internal/services/llm"
)

const (
	codeContextLengthExceeded = "context_length_exceeded"
	codeRateLimitExceeded     = "rate_limit_exceeded"
)

// tokenLimitPattern pulls the limit and the requested prompt size out of
// messages such as "maximum context length is 4096 tokens ... resulted in 5000 tokens".
var tokenLimitPattern = regexp.MustCompile(`max.*?(\d+) tokens[\s\S]*?(\d+) to`)

// ErrorClassifier maps provider errors onto outcomes. Errors it does not
// recognise are returned unchanged.
type ErrorClassifier interface {
	Classify(err error) (Outcome, error)
}

// MetadataExtractionError reports a context-length error whose message did not
// carry the token counts needed to compute a chunk budget.
type MetadataExtractionError struct {
	Message string
	Err     error
}

func (e *MetadataExtractionError) Error() string {
	return fmt.Sprintf("extract token limits from provider message %q", e.Message)
}

func (e *MetadataExtractionError) Unwrap() error { return e.Err }

// OpenAIClassifier understands the OpenAI and Azure OpenAI error envelopes.
type OpenAIClassifier struct{}

func (OpenAIClassifier) Classify(err error) (Outcome, error) {
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		return Outcome{}, err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.Code == codeRateLimitExceeded {
		return Overloaded(), nil
	}
	if apiErr.Code == codeContextLengthExceeded {
		usage, ok := ParseTokenLimit(apiErr.Message)
		if !ok {
			return Outcome{}, &MetadataExtractionError{Message: apiErr.Message, Err: err}
		}
		return Exceeded(usage), nil
	}
	return Outcome{}, err
}

// ParseTokenLimit extracts the context limit and prompt size from a provider
// message. Completion tokens are reported as zero.
func ParseTokenLimit(message string) (TokenUsage, bool) {
	match := tokenLimitPattern.FindStringSubmatch(message)
	if len(match) != 3 {
		return TokenUsage{}, false
	}
	limit, err := strconv.Atoi(match[1])
	if err != nil {
		return TokenUsage{}, false
	}
	promptTokens, err := strconv.Atoi(match[2])
	if err != nil {
		return TokenUsage{}, false
	}
	return TokenUsage{PromptTokens: promptTokens, TokensLimit: limit}, true
}
