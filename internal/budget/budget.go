package budget

import "math"

// Params tune the conversion from token counts to a character budget.
type Params struct {
	// SafetyPercent shrinks the raw budget to absorb estimation error.
	SafetyPercent float64
	// ReservedCompletionMinTokens is the minimum completion headroom.
	ReservedCompletionMinTokens int
	// CompletionTokenMinRatio scales headroom when the observed completion was large.
	CompletionTokenMinRatio float64
}

// DefaultParams returns a 1% safety margin, 2048 reserved completion tokens
// and a completion ratio of 2.
func DefaultParams() Params {
	return Params{
		SafetyPercent:               1,
		ReservedCompletionMinTokens: 2048,
		CompletionTokenMinRatio:     2,
	}
}

// Input describes the oversized request that was rejected. All character
// counts are in Unicode code points.
type Input struct {
	ContentChars     int
	PromptTokens     int
	CompletionTokens int
	TokensLimit      int
	TemplateChars    int
	WrapperChars     int
	PlaceholderChars int
}

// Estimate is the breakdown behind a chunk budget.
type Estimate struct {
	CharsPerToken   float64
	CharLimit       float64
	CompletionChars float64
	PromptChars     float64
	RawChunkChars   float64
	ChunkChars      int
}

// Calculate derives a per-chunk character budget from the failed request.
// The observed characters-per-token ratio converts the token limit back into
// characters; completion headroom and template overhead are then subtracted
// and a safety margin applied. ChunkChars is never below 1.
func Calculate(in Input, params Params) Estimate {
	var est Estimate
	if in.PromptTokens <= 0 {
		est.ChunkChars = 1
		return est
	}
	promptChars := float64(in.TemplateChars - in.PlaceholderChars + in.ContentChars)
	est.CharsPerToken = promptChars / float64(in.PromptTokens)
	est.CharLimit = float64(in.TokensLimit) * est.CharsPerToken

	reserve := math.Max(
		float64(params.ReservedCompletionMinTokens-in.CompletionTokens),
		float64(in.CompletionTokens)*params.CompletionTokenMinRatio,
	)
	est.CompletionChars = reserve * est.CharsPerToken
	est.PromptChars = est.CharLimit - est.CompletionChars

	templateOverhead := float64(in.TemplateChars - in.PlaceholderChars)
	wrapperOverhead := float64(in.WrapperChars - in.PlaceholderChars)
	est.RawChunkChars = est.PromptChars - templateOverhead - wrapperOverhead

	shrunk := math.Floor(est.RawChunkChars * (100 - params.SafetyPercent) / 100)
	est.ChunkChars = clamp(shrunk)
	return est
}

// ChunkChars returns only the final per-chunk budget.
func ChunkChars(in Input, params Params) int {
	return Calculate(in, params).ChunkChars
}

func clamp(v float64) int {
	switch {
	case math.IsNaN(v) || v < 1:
		return 1
	case v >= math.MaxInt32:
		return math.MaxInt32
	default:
		return int(v)
	}
}
