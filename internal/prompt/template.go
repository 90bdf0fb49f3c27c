package prompt

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"splitmerge/internal/chunk"
)

// Placeholder is the marker replaced by content in every template.
const Placeholder = "{content}"

// ErrPlaceholder is returned for templates without exactly one placeholder.
var ErrPlaceholder = errors.New("template must contain exactly one " + Placeholder + " placeholder")

//go:embed templates/*.prompt
var embedded embed.FS

// Template is a prompt text with a single content placeholder.
type Template struct {
	name string
	text string
}

// Parse validates text and returns a Template named name.
func Parse(name, text string) (Template, error) {
	if n := strings.Count(text, Placeholder); n != 1 {
		return Template{}, fmt.Errorf("template %q has %d placeholders: %w", name, n, ErrPlaceholder)
	}
	return Template{name: name, text: text}, nil
}

// Load reads and parses a template file.
func Load(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Template{}, fmt.Errorf("read template: %w", err)
	}
	return Parse(filepath.Base(path), string(data))
}

// Render replaces the placeholder with content. Content is inserted verbatim.
func (t Template) Render(content string) string {
	return strings.Replace(t.text, Placeholder, content, 1)
}

// Text returns the raw template including its placeholder.
func (t Template) Text() string { return t.text }

// Chars returns the template length in characters.
func (t Template) Chars() int { return chunk.Len(t.text) }

// Name returns the template's name, usually its file name.
func (t Template) Name() string { return t.name }

// PlaceholderChars is the character length of Placeholder.
func PlaceholderChars() int { return chunk.Len(Placeholder) }

// DefaultSplitWrapper frames a chunk prompt as one part of a larger document.
func DefaultSplitWrapper() Template { return mustEmbedded("split-wrapper.prompt") }

// DefaultMergeWrapper frames the concatenated chunk answers for the final merge.
func DefaultMergeWrapper() Template { return mustEmbedded("merge-wrapper.prompt") }

// SampleTemplate is the starter prompt written by `config init`.
func SampleTemplate() Template { return mustEmbedded("sample.prompt") }

// LoadOrDefault loads path when set, otherwise returns fallback.
func LoadOrDefault(path string, fallback Template) (Template, error) {
	if strings.TrimSpace(path) == "" {
		return fallback, nil
	}
	return Load(path)
}

func mustEmbedded(name string) Template {
	data, err := embedded.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("embedded template %s: %v", name, err))
	}
	tmpl, err := Parse(name, string(data))
	if err != nil {
		panic(err)
	}
	return tmpl
}
