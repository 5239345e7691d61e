package editor

import (
	"time"

	"github.com/starford/pagecraft/internal/models"
)

// Kind identifies what a history record undoes.
type Kind string

const (
	KindAdd    Kind = "add"
	KindDelete Kind = "delete"
	KindModify Kind = "modify"
)

// Record is one undoable mutation. Records are never changed after they
// are pushed; the executor clones their payload before writing it into
// the store.
type Record struct {
	ID string
	// ComponentID is empty when the record targets the page.
	ComponentID string
	Data        Payload
	CreatedAt   time.Time
}

// Kind reports the record kind derived from its payload.
func (r Record) Kind() Kind {
	return r.Data.kind()
}

// Payload is the kind-specific part of a record: AddData, DeleteData or
// ModifyData.
type Payload interface {
	kind() Kind
}

// AddData holds the component as it was when it was added.
type AddData struct {
	Component models.Component
}

func (AddData) kind() Kind { return KindAdd }

// DeleteData holds the removed component and the index it occupied.
type DeleteData struct {
	Component models.Component
	Index     int
}

func (DeleteData) kind() Kind { return KindDelete }

// ModifyData holds a property change on one key or an ordered list of
// keys. Old and New are pairwise with Keys.
type ModifyData struct {
	Keys []string
	// List is set when the change was made with a key list rather than a
	// single key, even a list of one.
	List bool
	Old  []any
	New  []any
}

func (ModifyData) kind() Kind { return KindModify }

// Key returns the changed key, or the key list for list changes.
func (d ModifyData) Key() any {
	if d.List {
		return append([]string(nil), d.Keys...)
	}
	return d.Keys[0]
}

// OldValue returns the value(s) from before the change in the shape of Key.
func (d ModifyData) OldValue() any {
	return d.shape(d.Old)
}

// NewValue returns the value(s) written by the change in the shape of Key.
func (d ModifyData) NewValue() any {
	return d.shape(d.New)
}

func (d ModifyData) shape(values []any) any {
	out := make([]any, len(values))
	for i, v := range values {
		if _, ok := v.(absentValue); ok {
			v = nil
		}
		out[i] = cloneValue(v)
	}
	if d.List {
		return out
	}
	return out[0]
}

// Entry is a read-only summary of a record for history panels.
type Entry struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"type"`
	ComponentID string    `json:"componentId,omitempty"`
	Index       *int      `json:"index,omitempty"`
	Key         any       `json:"key,omitempty"`
	OldValue    any       `json:"oldValue,omitempty"`
	NewValue    any       `json:"newValue,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (r Record) entry() Entry {
	e := Entry{
		ID:          r.ID,
		Kind:        r.Kind(),
		ComponentID: r.ComponentID,
		CreatedAt:   r.CreatedAt,
	}
	switch d := r.Data.(type) {
	case DeleteData:
		idx := d.Index
		e.Index = &idx
	case ModifyData:
		e.Key = d.Key()
		e.OldValue = d.OldValue()
		e.NewValue = d.NewValue()
	}
	return e
}
