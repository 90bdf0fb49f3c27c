package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePlaceholderCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{name: "one", text: "Summarise:\n{content}", ok: true},
		{name: "none", text: "Summarise the file", ok: false},
		{name: "two", text: "{content} and {content}", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name, tt.text)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrPlaceholder) {
				t.Fatalf("expected ErrPlaceholder, got %v", err)
			}
		})
	}
}

func TestRenderReplacesOnceVerbatim(t *testing.T) {
	tmpl, err := Parse("t", "Before {content} after")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := tmpl.Render("$1 {content} $&")
	if got != "Before $1 {content} $& after" {
		t.Fatalf("unexpected render %q", got)
	}
	if tmpl.Text() != "Before {content} after" {
		t.Fatalf("Text changed: %q", tmpl.Text())
	}
}

func TestCharsCountsRunes(t *testing.T) {
	tmpl, err := Parse("t", "Résumé {content}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.Chars() != 16 {
		t.Fatalf("expected 16 chars, got %d", tmpl.Chars())
	}
	if PlaceholderChars() != 9 {
		t.Fatalf("expected placeholder of 9 chars, got %d", PlaceholderChars())
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "review.prompt")
	if err := os.WriteFile(path, []byte("Review:\n{content}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmpl, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tmpl.Name() != "review.prompt" {
		t.Fatalf("unexpected name %q", tmpl.Name())
	}

	bad := filepath.Join(dir, "bad.prompt")
	if err := os.WriteFile(bad, []byte("no marker"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(bad); !errors.Is(err, ErrPlaceholder) {
		t.Fatalf("expected ErrPlaceholder, got %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.prompt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	for _, tmpl := range []Template{DefaultSplitWrapper(), DefaultMergeWrapper(), SampleTemplate()} {
		if strings.Count(tmpl.Text(), Placeholder) != 1 {
			t.Fatalf("embedded template %s must have one placeholder", tmpl.Name())
		}
	}
}

func TestLoadOrDefault(t *testing.T) {
	fallback := DefaultSplitWrapper()
	got, err := LoadOrDefault("  ", fallback)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if got.Text() != fallback.Text() {
		t.Fatal("expected fallback template")
	}
}
