package editor

import (
	"slices"

	"github.com/starford/pagecraft/internal/models"
)

// DefaultPageProps returns the visual props of a blank page.
func DefaultPageProps() map[string]any {
	return map[string]any{
		"backgroundColor":  "#ffffff",
		"backgroundImage":  "",
		"backgroundRepeat": "no-repeat",
		"backgroundSize":   "cover",
		"height":           "560px",
	}
}

// Store is the authoritative state of one page: its ordered components
// and the page itself. It is not safe for concurrent use; the Engine
// serialises access.
type Store struct {
	components []models.Component
	page       models.Page
}

// NewStore creates a store holding a blank page.
func NewStore() *Store {
	return &Store{
		components: []models.Component{},
		page: models.Page{
			Props:   DefaultPageProps(),
			Setting: map[string]any{},
		},
	}
}

// Len returns the number of components.
func (s *Store) Len() int {
	return len(s.components)
}

// IndexOf returns the position of the component with id, or -1.
func (s *Store) IndexOf(id string) int {
	return slices.IndexFunc(s.components, func(c models.Component) bool {
		return c.ID == id
	})
}

// Find returns the live component with id. The pointer is only valid until
// the next structural change.
func (s *Store) Find(id string) (*models.Component, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return nil, false
	}
	return &s.components[i], true
}

// Append adds c at the end.
func (s *Store) Append(c models.Component) {
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	s.components = append(s.components, c)
}

// InsertAt places c at index, clamped to the current bounds.
func (s *Store) InsertAt(index int, c models.Component) {
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	s.components = InsertAt(s.components, index, c)
}

// Remove deletes the component with id and returns it. It is a no-op when
// the id is unknown.
func (s *Store) Remove(id string) (models.Component, bool) {
	i := s.IndexOf(id)
	if i < 0 {
		return models.Component{}, false
	}
	c := s.components[i]
	s.components = slices.Delete(s.components, i, i+1)
	return c, true
}

// Components returns a deep copy of the components in order.
func (s *Store) Components() []models.Component {
	return cloneComponents(s.components)
}

// Page returns a deep copy of the page.
func (s *Store) Page() models.Page {
	return clonePage(s.page)
}

// Replace swaps in a new page and component list.
func (s *Store) Replace(page models.Page, components []models.Component) {
	if page.Props == nil {
		page.Props = map[string]any{}
	}
	if page.Setting == nil {
		page.Setting = map[string]any{}
	}
	s.page = page
	s.components = make([]models.Component, 0, len(components))
	for _, c := range components {
		s.Append(c)
	}
}

// props returns the property bag a record targets: the page props for an
// empty id, otherwise the component's props.
func (s *Store) props(target string) (map[string]any, bool) {
	if target == "" {
		if s.page.Props == nil {
			s.page.Props = map[string]any{}
		}
		return s.page.Props, true
	}
	c, ok := s.Find(target)
	if !ok {
		return nil, false
	}
	if c.Props == nil {
		c.Props = map[string]any{}
	}
	return c.Props, true
}

// Values reads keys from the target's props. Missing keys come back as an
// absent marker so that writing them back removes the key again.
func (s *Store) Values(target string, keys []string) ([]any, bool) {
	bag, ok := s.props(target)
	if !ok {
		return nil, false
	}
	out := make([]any, len(keys))
	for i, k := range keys {
		v, present := bag[k]
		if !present {
			out[i] = absentValue{}
			continue
		}
		out[i] = cloneValue(v)
	}
	return out, true
}

// SetValues writes values to keys pairwise on the target's props.
func (s *Store) SetValues(target string, keys []string, values []any) error {
	if len(keys) != len(values) || len(keys) == 0 {
		return ErrKeyValueMismatch
	}
	bag, ok := s.props(target)
	if !ok {
		return ErrComponentNotFound
	}
	for i, k := range keys {
		if _, absent := values[i].(absentValue); absent {
			delete(bag, k)
			continue
		}
		bag[k] = cloneValue(values[i])
	}
	return nil
}

// InsertAt returns a new slice with item at index. Indexes outside the
// slice are clamped, so a stale index appends rather than panics.
func InsertAt[T any](seq []T, index int, item T) []T {
	index = max(0, min(index, len(seq)))
	out := make([]T, 0, len(seq)+1)
	out = append(out, seq[:index]...)
	out = append(out, item)
	return append(out, seq[index:]...)
}
