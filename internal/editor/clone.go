package editor

import (
	"maps"
	"slices"

	"github.com/starford/pagecraft/internal/models"
)

// absentValue marks a key that had no value before a change. Writing it
// back deletes the key instead of storing nil.
type absentValue struct{}

// cloneValue deep-copies the JSON-shaped values held in property bags.
// Scalars are returned as is.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneProps(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return slices.Clone(t)
	case []float64:
		return slices.Clone(t)
	case []int:
		return slices.Clone(t)
	case map[string]string:
		return maps.Clone(t)
	default:
		return v
	}
}

func cloneProps(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneComponent(c models.Component) models.Component {
	c.Props = cloneProps(c.Props)
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	return c
}

func cloneComponents(cs []models.Component) []models.Component {
	out := make([]models.Component, len(cs))
	for i := range cs {
		out[i] = cloneComponent(cs[i])
	}
	return out
}

func clonePage(p models.Page) models.Page {
	p.Props = cloneProps(p.Props)
	p.Setting = cloneProps(p.Setting)
	return p
}
