package editor

import "log/slog"

// Undo reverts the record at the cursor. Pending bursts are committed
// first so the undo applies to the latest edit.
func (e *Engine) Undo() error {
	return e.mutate(OpUndo, func() error {
		e.flushLocked()

		r, ok := e.ledger.StepBack()
		if !ok {
			return ErrNothingToUndo
		}
		e.revert(r)
		e.touch()
		return nil
	})
}

// Redo reapplies the record at the cursor.
func (e *Engine) Redo() error {
	return e.apply(func() (Op, error) {
		// A pending burst is a new edit: committing it discards the redo
		// records, exactly as it would once its timer fired.
		if e.flushLocked() > 0 {
			return OpCommit, ErrNothingToRedo
		}
		r, ok := e.ledger.StepForward()
		if !ok {
			return "", ErrNothingToRedo
		}
		e.reapply(r)
		e.touch()
		return OpRedo, nil
	})
}

func (e *Engine) revert(r Record) {
	switch d := r.Data.(type) {
	case AddData:
		e.store.Remove(r.ComponentID)
	case DeleteData:
		e.store.InsertAt(d.Index, cloneComponent(d.Component))
	case ModifyData:
		e.writeBack(r, d.Keys, d.Old)
	}
}

func (e *Engine) reapply(r Record) {
	switch d := r.Data.(type) {
	case AddData:
		// Re-append the stored snapshot so the component keeps its id.
		e.store.Append(cloneComponent(d.Component))
	case DeleteData:
		e.store.Remove(r.ComponentID)
	case ModifyData:
		e.writeBack(r, d.Keys, d.New)
	}
}

func (e *Engine) writeBack(r Record, keys []string, values []any) {
	if err := e.store.SetValues(r.ComponentID, keys, values); err != nil {
		// The record outlived its component.
		e.logger.Debug("editor: replay skipped",
			slog.String("record_id", r.ID),
			slog.String("component_id", r.ComponentID),
			slog.String("error", err.Error()))
	}
}
