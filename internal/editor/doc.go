// Package editor is the state and history engine behind the page builder.
//
// It owns the placed components and the page settings of one editing
// session and records every state-changing operation as a reversible
// history record.
//
// # Component Store
//
// Store holds the ordered components and the page. Components are looked
// up by id and may be reinserted at an arbitrary index when a delete is
// undone.
//
// # History Ledger
//
// Ledger is a bounded, linear list of records plus a cursor:
//
//	cursor == -1   at the head, nothing undone yet
//	cursor == k    record k is the current undo/redo point
//
// Pushing while the cursor is not -1 discards the undone records before
// appending. Pushing at capacity evicts the oldest record.
//
// # Coalescing
//
// Property writes are not recorded one by one. Writes to the same target
// and keys that arrive within the quiescence window are merged into one
// Modify record holding the value from before the first write and the
// value of the last write:
//
//	eng := editor.New(editor.WithCoalesceWindow(time.Second))
//	for x := 0; x <= 100; x += 10 {
//	    eng.UpdateComponent(id, editor.Prop("left", fmt.Sprintf("%dpx", x)))
//	}
//	// one second later a single record left: "0px" -> "100px" is pushed
//
// Each engine owns its coalescing slots, one per target and key set, so
// bursts on different properties commit independently.
//
// # Undo and Redo
//
// Undo applies the inverse of the record at the cursor and Redo applies it
// forward again. Callers enable their affordances with CanUndo and CanRedo.
package editor
