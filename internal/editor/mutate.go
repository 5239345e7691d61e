package editor

import (
	"fmt"
	"log/slog"

	"github.com/starford/pagecraft/internal/models"
)

const (
	layerPrefix = "Layer "
	copySuffix  = " Copy"
)

// Update is a write of one key or of an ordered list of keys.
type Update struct {
	Keys   []string
	Values []any
	List   bool
}

// Prop builds a single-key update.
func Prop(key string, value any) Update {
	return Update{Keys: []string{key}, Values: []any{value}}
}

// Props builds a list update; keys and values are paired by position.
func Props(keys []string, values []any) Update {
	return Update{Keys: keys, Values: values, List: true}
}

func (u Update) validate() error {
	if len(u.Keys) == 0 || len(u.Keys) != len(u.Values) {
		return ErrKeyValueMismatch
	}
	return nil
}

// AddComponent assigns c a fresh id and a layer name derived from the
// component count, appends it and records an Add.
func (e *Engine) AddComponent(c models.Component) models.Component {
	var added models.Component
	e.mutate(OpAdd, func() error {
		e.flushLocked()

		c = cloneComponent(c)
		c.ID = e.newID()
		c.LayerName = fmt.Sprintf("%s%d", layerPrefix, e.store.Len()+1)
		e.store.Append(c)
		e.push(c.ID, AddData{Component: cloneComponent(c)})
		e.touch()

		added = cloneComponent(c)
		return nil
	})
	return added
}

// DeleteComponent removes the component with id and records a Delete
// holding its position. Unknown ids fail with ErrComponentNotFound and
// change nothing.
func (e *Engine) DeleteComponent(id string) error {
	return e.mutate(OpDelete, func() error {
		idx := e.store.IndexOf(id)
		if idx < 0 {
			return ErrComponentNotFound
		}
		e.flushLocked()

		// Flushing only pushes records; the index is still valid.
		removed, _ := e.store.Remove(id)
		e.push(id, DeleteData{Component: cloneComponent(removed), Index: idx})
		e.touch()
		return nil
	})
}

// UpdateComponent writes props on the component with id, or on the
// selected component when id is empty. The store changes immediately;
// the history record is produced by the coalescer once the burst is quiet.
func (e *Engine) UpdateComponent(id string, u Update) error {
	return e.mutate(OpModify, func() error {
		return e.updateLocked(id, u)
	})
}

func (e *Engine) updateLocked(id string, u Update) error {
	if err := u.validate(); err != nil {
		return err
	}
	if id == "" {
		id = e.current
	}
	if id == "" {
		return ErrNoSelection
	}
	return e.modifyLocked(id, u)
}

// modifyLocked is the shared property-modify path for components (id set)
// and the page (id empty).
func (e *Engine) modifyLocked(target string, u Update) error {
	old, ok := e.store.Values(target, u.Keys)
	if !ok {
		return ErrComponentNotFound
	}
	values := cloneValues(u.Values)
	closed := e.coalescer.Submit(Burst{
		Target: target,
		Keys:   append([]string(nil), u.Keys...),
		List:   u.List,
		Old:    old,
		New:    values,
	})
	for _, b := range closed {
		e.commitBurst(b)
	}
	if err := e.store.SetValues(target, u.Keys, values); err != nil {
		return err
	}
	e.touch()
	return nil
}

// Component attributes outside the props bag.
const (
	AttrLayerName = "layerName"
	AttrIsHidden  = "isHidden"
	AttrIsLocked  = "isLocked"
	AttrName      = "name"
)

// SetComponentAttr sets a non-prop attribute. These writes are not
// recorded in history.
func (e *Engine) SetComponentAttr(id, attr string, value any) error {
	return e.mutate(OpModify, func() error {
		if id == "" {
			id = e.current
		}
		c, ok := e.store.Find(id)
		if !ok {
			return ErrComponentNotFound
		}
		switch attr {
		case AttrLayerName, AttrName:
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%s must be a string: %w", attr, ErrUnknownAttribute)
			}
			if attr == AttrName {
				c.Name = s
			} else {
				c.LayerName = s
			}
		case AttrIsHidden, AttrIsLocked:
			b, ok := value.(bool)
			if !ok {
				return fmt.Errorf("%s must be a bool: %w", attr, ErrUnknownAttribute)
			}
			if attr == AttrIsHidden {
				c.IsHidden = b
			} else {
				c.IsLocked = b
			}
		default:
			return fmt.Errorf("%q: %w", attr, ErrUnknownAttribute)
		}
		e.touch()
		return nil
	})
}

// PageLevel selects which part of the page an update targets.
type PageLevel string

const (
	// LevelRoot targets page metadata (title, desc, coverImg).
	LevelRoot PageLevel = ""
	// LevelProps targets the visual props; these writes are recorded.
	LevelProps PageLevel = "props"
	// LevelSetting targets non-visual settings.
	LevelSetting PageLevel = "setting"
)

// UpdatePageProps writes page props through the recorded, coalesced path.
func (e *Engine) UpdatePageProps(u Update) error {
	return e.mutate(OpModify, func() error {
		if err := u.validate(); err != nil {
			return err
		}
		return e.modifyLocked("", u)
	})
}

// UpdatePage writes one page key at the given level. Only LevelProps
// writes are recorded.
func (e *Engine) UpdatePage(level PageLevel, key string, value any) error {
	if level == LevelProps {
		return e.UpdatePageProps(Prop(key, value))
	}
	return e.mutate(OpModify, func() error {
		page := &e.store.page
		switch level {
		case LevelSetting:
			if page.Setting == nil {
				page.Setting = map[string]any{}
			}
			page.Setting[key] = cloneValue(value)
		case LevelRoot:
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("%s must be a string: %w", key, ErrUnknownPageField)
			}
			switch key {
			case "title":
				page.Title = s
			case "desc":
				page.Desc = s
			case "coverImg":
				page.CoverImg = s
			default:
				return fmt.Errorf("%q: %w", key, ErrUnknownPageField)
			}
		default:
			return fmt.Errorf("level %q: %w", level, ErrUnknownPageField)
		}
		e.touch()
		return nil
	})
}

// CopyComponent remembers a deep copy of the component for Paste. It is
// not a history event.
func (e *Engine) CopyComponent(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.store.Find(id)
	if !ok {
		return ErrComponentNotFound
	}
	cp := cloneComponent(*c)
	e.copied = &cp
	return nil
}

// Paste appends a fresh clone of the copied component and records an Add.
func (e *Engine) Paste() (models.Component, error) {
	var pasted models.Component
	err := e.mutate(OpAdd, func() error {
		if e.copied == nil {
			return ErrNothingCopied
		}
		e.flushLocked()

		clone := cloneComponent(*e.copied)
		clone.ID = e.newID()
		clone.LayerName += copySuffix
		e.store.Append(clone)
		e.push(clone.ID, AddData{Component: cloneComponent(clone)})
		e.touch()

		e.logger.Debug("editor: pasted component",
			slog.String("component_id", clone.ID),
			slog.String("layer_name", clone.LayerName))
		pasted = cloneComponent(clone)
		return nil
	})
	return pasted, err
}
