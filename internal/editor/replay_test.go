package editor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/pagecraft/internal/models"
)

type pageState struct {
	Components []models.Component
	PageProps  map[string]any
}

func capture(e *Engine) pageState {
	st := e.Snapshot()
	return pageState{Components: st.Components, PageProps: st.Page.Props}
}

func TestReplay_DeleteRestoresOriginalIndex(t *testing.T) {
	e := newTestEngine(t)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, e.AddComponent(text(fmt.Sprint(i))).ID)
	}
	before := capture(e)

	require.NoError(t, e.DeleteComponent(ids[2]))
	require.Len(t, e.Components(), 4)
	entry := e.History().Entries[5]
	require.Equal(t, KindDelete, entry.Kind)
	require.Equal(t, 2, *entry.Index)

	require.NoError(t, e.Undo())
	require.Equal(t, before, capture(e))
	require.Equal(t, ids[2], e.Components()[2].ID)

	require.NoError(t, e.Redo())
	_, ok := e.Component(ids[2])
	require.False(t, ok)
}

func TestReplay_AddModifyDeleteScenario(t *testing.T) {
	e := newTestEngine(t)
	a := e.AddComponent(models.Component{Name: "l-text", Props: map[string]any{"top": "0px"}})
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "50px")))
	e.Flush()
	require.NoError(t, e.DeleteComponent(a.ID))

	h := e.History()
	require.Len(t, h.Entries, 3)
	require.Equal(t, -1, h.HistoryIndex)

	require.NoError(t, e.Undo())
	got, ok := e.Component(a.ID)
	require.True(t, ok)
	require.Equal(t, "50px", got.Props["top"])

	require.NoError(t, e.Undo())
	got, _ = e.Component(a.ID)
	require.Equal(t, "0px", got.Props["top"])

	require.NoError(t, e.Undo())
	require.Empty(t, e.Components())

	st := e.Snapshot()
	require.Equal(t, 0, st.HistoryIndex)
	require.False(t, st.CanUndo)
	require.True(t, st.CanRedo)
	require.ErrorIs(t, e.Undo(), ErrNothingToUndo)
}

// buildHistory performs a mixed sequence of edits, committing each one as
// its own record, and returns the state after every record.
func buildHistory(t *testing.T, e *Engine) []pageState {
	t.Helper()
	states := []pageState{capture(e)}
	step := func(fn func()) {
		fn()
		e.Flush()
		states = append(states, capture(e))
	}

	var a, b, c models.Component
	step(func() { a = e.AddComponent(text("a")) })
	step(func() { b = e.AddComponent(text("b")) })
	step(func() { require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "12px"))) })
	step(func() { c = e.AddComponent(text("c")) })
	step(func() {
		require.NoError(t, e.UpdateComponent(b.ID, Props([]string{"top", "left"}, []any{"4px", "8px"})))
	})
	step(func() { require.NoError(t, e.DeleteComponent(a.ID)) })
	step(func() { require.NoError(t, e.UpdatePageProps(Prop("backgroundColor", "#333333"))) })
	step(func() {
		require.NoError(t, e.UpdateComponent(c.ID, Prop("style", map[string]any{"color": "red"})))
	})
	step(func() { require.NoError(t, e.DeleteComponent(b.ID)) })
	step(func() {
		require.NoError(t, e.CopyComponent(c.ID))
		_, err := e.Paste()
		require.NoError(t, err)
	})

	require.Len(t, e.History().Entries, len(states)-1)
	return states
}

func TestReplay_UndoRedoRoundTrip(t *testing.T) {
	reference := newTestEngine(t)
	n := len(buildHistory(t, reference)) - 1

	for k := 0; k <= n; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			e := newTestEngine(t)
			states := buildHistory(t, e)
			final := states[n]

			for i := 1; i <= k; i++ {
				require.NoError(t, e.Undo())
				require.Equal(t, states[n-i], capture(e), "after %d undos", i)
			}
			if k == n {
				require.False(t, e.CanUndo())
			}
			for i := 1; i <= k; i++ {
				require.NoError(t, e.Redo())
				require.Equal(t, states[n-k+i], capture(e), "after %d redos", i)
			}
			require.Equal(t, final, capture(e))
			require.False(t, e.CanRedo())
		})
	}
}

func TestReplay_RecordsAreImmutable(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(models.Component{Name: "l-text", Props: map[string]any{"style": map[string]any{"color": "red"}}})
	require.NoError(t, e.UpdateComponent(c.ID, Prop("style", map[string]any{"color": "blue"})))
	e.Flush()

	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	require.NoError(t, e.Redo())

	got, _ := e.Component(c.ID)
	require.Equal(t, map[string]any{"color": "red"}, got.Props["style"], "add snapshot kept its original props")

	require.NoError(t, e.Redo())
	got, _ = e.Component(c.ID)
	require.Equal(t, map[string]any{"color": "blue"}, got.Props["style"])
}

func TestReplay_NewEditDiscardsRedo(t *testing.T) {
	e := newTestEngine(t)
	for i := 0; i < 5; i++ {
		e.AddComponent(text(fmt.Sprint(i)))
	}
	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	require.True(t, e.CanRedo())

	e.AddComponent(text("branch"))
	st := e.Snapshot()
	require.Equal(t, 4, st.HistoryLen)
	require.Equal(t, -1, st.HistoryIndex)
	require.False(t, st.CanRedo)
	require.ErrorIs(t, e.Redo(), ErrNothingToRedo)
}

func TestReplay_PendingBurstDiscardsRedo(t *testing.T) {
	e := newTestEngine(t)
	a := e.AddComponent(text("a"))
	e.AddComponent(text("b"))
	require.NoError(t, e.Undo())

	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "3px")))
	require.ErrorIs(t, e.Redo(), ErrNothingToRedo)
	require.Len(t, e.Components(), 1)
	require.Len(t, e.History().Entries, 2)
}

func TestReplay_RedoReportsFlushedBurst(t *testing.T) {
	var ops []Op
	e := newTestEngine(t, WithListener(func(c Change) { ops = append(ops, c.Op) }))
	a := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "3px")))
	require.ErrorIs(t, e.Redo(), ErrNothingToRedo)
	require.ErrorIs(t, e.Redo(), ErrNothingToRedo)

	require.Equal(t, []Op{OpAdd, OpModify, OpCommit}, ops)
}

func TestReplay_OverlappingBurstsRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	a := e.AddComponent(text("a"))

	// Arrow keys write top alone while a drag writes top and left together.
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "10px")))
	require.NoError(t, e.UpdateComponent(a.ID, Props([]string{"top", "left"}, []any{"50px", "5px"})))
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "60px")))
	e.Flush()

	pos := func() [2]any {
		c, ok := e.Component(a.ID)
		require.True(t, ok)
		return [2]any{c.Props["top"], c.Props["left"]}
	}
	require.Equal(t, [2]any{"60px", "5px"}, pos())
	final := capture(e)

	steps := [][2]any{
		{"50px", "5px"},
		{"10px", "0px"},
		{"0px", "0px"},
	}
	for i, want := range steps {
		require.NoError(t, e.Undo())
		require.Equal(t, want, pos(), "undo %d", i+1)
	}
	for e.CanRedo() {
		require.NoError(t, e.Redo())
	}
	require.Equal(t, final, capture(e))
}

func TestReplay_RedoFlushAndStepShareOneChange(t *testing.T) {
	var changes []Change
	e := newTestEngine(t, WithListener(func(c Change) { changes = append(changes, c) }))
	a := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "1px")))
	require.NoError(t, e.Undo())
	require.NoError(t, e.UpdateComponent(a.ID, Prop("left", "2px")))
	changes = nil

	require.ErrorIs(t, e.Redo(), ErrNothingToRedo)
	require.Len(t, changes, 1)
	require.Equal(t, OpCommit, changes[0].Op)
	require.Equal(t, -1, changes[0].HistoryIndex)
	require.Equal(t, 2, changes[0].HistoryLen, "the undone top record was truncated")
	require.False(t, changes[0].CanRedo)
}

func TestReplay_CapacityEviction(t *testing.T) {
	e := newTestEngine(t, WithMaxHistory(3))
	for i := 0; i < 5; i++ {
		e.AddComponent(text(fmt.Sprint(i)))
	}
	h := e.History()
	require.Len(t, h.Entries, 3)
	require.Equal(t, 3, h.Max)

	for e.CanUndo() {
		require.NoError(t, e.Undo())
	}
	// The first two adds fell off the ledger and stay applied.
	require.Len(t, e.Components(), 2)
}
