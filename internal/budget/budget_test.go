package budget

import (
	"math"
	"testing"
)

func TestCalculateTypicalOverflow(t *testing.T) {
	in := Input{
		ContentChars:     20009,
		PromptTokens:     5000,
		CompletionTokens: 0,
		TokensLimit:      4096,
		TemplateChars:    1000,
		WrapperChars:     209,
		PlaceholderChars: 9,
	}
	est := Calculate(in, DefaultParams())

	// (1000 - 9 + 20009) / 5000 = 4.2 chars per token
	if math.Abs(est.CharsPerToken-4.2) > 1e-9 {
		t.Fatalf("expected 4.2 chars/token, got %v", est.CharsPerToken)
	}
	if math.Abs(est.CharLimit-17203.2) > 1e-6 {
		t.Fatalf("unexpected char limit %v", est.CharLimit)
	}
	// reserve max(2048-0, 0*2) = 2048 tokens
	if math.Abs(est.CompletionChars-8601.6) > 1e-6 {
		t.Fatalf("unexpected completion chars %v", est.CompletionChars)
	}
	// 17203.2 - 8601.6 - 991 - 200 = 7410.6, *0.99 = 7336.494
	if math.Abs(est.RawChunkChars-7410.6) > 1e-6 {
		t.Fatalf("unexpected raw chunk chars %v", est.RawChunkChars)
	}
	if est.ChunkChars != 7336 {
		t.Fatalf("expected 7336, got %d", est.ChunkChars)
	}
	if ChunkChars(in, DefaultParams()) != est.ChunkChars {
		t.Fatal("ChunkChars disagrees with Calculate")
	}
}

func TestCalculateLargeCompletionScalesReserve(t *testing.T) {
	in := Input{
		ContentChars:     40000,
		PromptTokens:     10000,
		CompletionTokens: 3000,
		TokensLimit:      13000,
		TemplateChars:    9,
		WrapperChars:     9,
		PlaceholderChars: 9,
	}
	est := Calculate(in, DefaultParams())
	// 4 chars/token; reserve = max(2048-3000, 6000) = 6000 tokens = 24000 chars
	if est.CompletionChars != 24000 {
		t.Fatalf("expected 24000 completion chars, got %v", est.CompletionChars)
	}
	// (52000 - 24000) * 0.99 = 27720
	if est.ChunkChars != 27720 {
		t.Fatalf("expected 27720, got %d", est.ChunkChars)
	}
}

func TestChunkCharsNeverBelowOne(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{name: "tiny limit", in: Input{ContentChars: 100000, PromptTokens: 30000, TokensLimit: 10, TemplateChars: 50, WrapperChars: 50, PlaceholderChars: 9}},
		{name: "huge completion", in: Input{ContentChars: 1000, PromptTokens: 300, CompletionTokens: 1 << 20, TokensLimit: 400, TemplateChars: 9, WrapperChars: 9, PlaceholderChars: 9}},
		{name: "zero prompt tokens", in: Input{ContentChars: 1000, TokensLimit: 400}},
		{name: "negative prompt tokens", in: Input{ContentChars: 1000, PromptTokens: -5, TokensLimit: 400}},
		{name: "all zero", in: Input{}},
		{name: "templates larger than budget", in: Input{ContentChars: 10, PromptTokens: 5000, TokensLimit: 4096, TemplateChars: 100000, WrapperChars: 100000, PlaceholderChars: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChunkChars(tt.in, DefaultParams()); got < 1 {
				t.Fatalf("expected budget >= 1, got %d", got)
			}
		})
	}
}

func TestChunkCharsSafetyPercent(t *testing.T) {
	in := Input{ContentChars: 10000, PromptTokens: 10000, TokensLimit: 10000, TemplateChars: 9, WrapperChars: 9, PlaceholderChars: 9}
	params := Params{SafetyPercent: 10, ReservedCompletionMinTokens: 0, CompletionTokenMinRatio: 0}
	if got := ChunkChars(in, params); got != 9000 {
		t.Fatalf("expected 9000 with 10%% safety, got %d", got)
	}
	params.SafetyPercent = 0
	if got := ChunkChars(in, params); got != 10000 {
		t.Fatalf("expected 10000 with no safety, got %d", got)
	}
}
