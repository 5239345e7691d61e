// Package workdoc decodes and encodes work documents and extracts the
// fields the index needs from them.
package workdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/models"
)

// UntitledTitle is used when neither the work nor its components carry a
// title.
const UntitledTitle = "Untitled"

var (
	tagRe   = regexp.MustCompile(`<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// textKeys are the props that hold visible text.
var textKeys = []string{"text", "title", "alt"}

// Result holds a decoded work plus derived index fields.
type Result struct {
	Work       models.Work
	Title      string
	Text       string
	Components int
	// Assets lists the distinct image sources used by components, in
	// document order.
	Assets []string
}

// Parse decodes a work document. Props and setting maps are never nil in
// the result.
func Parse(data []byte) (*Result, error) {
	var w models.Work
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("workdoc: decode: %w: %w", apperr.ErrInvalidInput, err)
	}
	normalize(&w)

	return &Result{
		Work:       w,
		Title:      deriveTitle(w),
		Text:       extractText(w),
		Components: len(w.Content.Components),
		Assets:     extractAssets(w),
	}, nil
}

// Encode renders w as an indented JSON document.
func Encode(w models.Work) ([]byte, error) {
	normalize(&w)
	data, err := json.MarshalIndent(w, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("workdoc: encode: %w", err)
	}
	return append(data, '\n'), nil
}

func normalize(w *models.Work) {
	if w.Content.Components == nil {
		w.Content.Components = []models.Component{}
	}
	if w.Content.Props == nil {
		w.Content.Props = map[string]any{}
	}
	if w.Content.Setting == nil {
		w.Content.Setting = map[string]any{}
	}
	for i := range w.Content.Components {
		c := &w.Content.Components[i]
		if c.Props == nil {
			c.Props = map[string]any{}
		}
		for k, v := range c.Props {
			c.Props[k] = fromNumber(v)
		}
	}
	for k, v := range w.Content.Props {
		w.Content.Props[k] = fromNumber(v)
	}
}

// fromNumber turns json.Number values back into int or float64 so that
// decoded props compare equal to the values the editor writes.
func fromNumber(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, inner := range t {
			t[k] = fromNumber(inner)
		}
		return t
	case []any:
		for i := range t {
			t[i] = fromNumber(t[i])
		}
		return t
	}
	return v
}

// deriveTitle returns the work title, otherwise the first text component's
// text, otherwise UntitledTitle.
func deriveTitle(w models.Work) string {
	if s := strings.TrimSpace(w.Title); s != "" {
		return s
	}
	for _, c := range w.Content.Components {
		if s, ok := c.Props["text"].(string); ok {
			if s = plain(s); s != "" {
				return s
			}
		}
	}
	return UntitledTitle
}

func extractText(w models.Work) string {
	parts := []string{w.Title, w.Desc}
	for _, c := range w.Content.Components {
		for _, k := range textKeys {
			if s, ok := c.Props[k].(string); ok {
				parts = append(parts, s)
			}
		}
	}
	var out []string
	for _, p := range parts {
		if p = plain(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

func extractAssets(w models.Work) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(v any) {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, c := range w.Content.Components {
		add(c.Props["src"])
	}
	add(w.CoverImg)
	return out
}

// plain strips markup and collapses whitespace.
func plain(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
