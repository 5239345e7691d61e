package editor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/starford/pagecraft/internal/apperr"
	"github.com/starford/pagecraft/internal/models"
)

// seqIDs returns a deterministic id generator. It is only called under the
// engine lock.
func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// newTestEngine uses a long window so that bursts only commit on Flush or
// on a structural operation.
func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{
		WithIDGenerator(seqIDs("id")),
		WithCoalesceWindow(time.Hour),
	}
	e := New(append(base, opts...)...)
	t.Cleanup(e.Close)
	return e
}

func text(content string) models.Component {
	return models.Component{
		Name:  "l-text",
		Props: map[string]any{"text": content, "top": "0px", "left": "0px"},
	}
}

func TestEngine_AddAssignsIDAndLayerName(t *testing.T) {
	e := newTestEngine(t)

	first := e.AddComponent(models.Component{Name: "l-text", ID: "ignored"})
	second := e.AddComponent(models.Component{Name: "l-image"})

	require.NotEqual(t, "ignored", first.ID)
	require.Equal(t, "Layer 1", first.LayerName)
	require.Equal(t, "Layer 2", second.LayerName)
	require.NotNil(t, first.Props)

	st := e.Snapshot()
	require.Len(t, st.Components, 2)
	require.Equal(t, 2, st.HistoryLen)
	require.Equal(t, -1, st.HistoryIndex)
	require.True(t, st.CanUndo)
	require.True(t, st.IsDirty)
	require.True(t, st.IsChangedNotPublished)
}

func TestEngine_DefaultsUseUUIDs(t *testing.T) {
	e := New()
	defer e.Close()

	c := e.AddComponent(text("hi"))
	require.Len(t, c.ID, 36)
}

func TestEngine_DeleteUnknownLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t)
	e.AddComponent(text("a"))
	before := e.Snapshot()

	err := e.DeleteComponent("missing")
	require.ErrorIs(t, err, ErrComponentNotFound)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Equal(t, before, e.Snapshot())
}

func TestEngine_UpdateUnknownLeavesStateUntouched(t *testing.T) {
	e := newTestEngine(t)
	e.AddComponent(text("a"))
	before := e.Snapshot()

	require.ErrorIs(t, e.UpdateComponent("missing", Prop("top", "1px")), ErrComponentNotFound)
	require.ErrorIs(t, e.UpdateComponent("", Prop("top", "1px")), ErrNoSelection)
	require.ErrorIs(t, e.UpdateComponent("id1", Update{Keys: []string{"a", "b"}, Values: []any{1}}), ErrKeyValueMismatch)
	require.Zero(t, e.Flush())
	require.Equal(t, before, e.Snapshot())
}

func TestEngine_UpdateWritesStoreImmediately(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))

	require.NoError(t, e.UpdateComponent(c.ID, Prop("text", "b")))
	got, ok := e.Component(c.ID)
	require.True(t, ok)
	require.Equal(t, "b", got.Props["text"])

	h := e.History()
	require.Len(t, h.Entries, 1, "modify is pending until quiet")
	require.Equal(t, 1, h.Pending)
}

func TestEngine_UpdateSelectedComponent(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))
	e.SetActive(c.ID)
	require.Equal(t, c.ID, e.CurrentElement())

	require.NoError(t, e.UpdateComponent("", Prop("color", "red")))
	got, _ := e.Component(c.ID)
	require.Equal(t, "red", got.Props["color"])
}

func TestEngine_CoalescesRapidWrites(t *testing.T) {
	e := newTestEngine(t, WithCoalesceWindow(30*time.Millisecond))
	c := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("fontSize", "10px")))
	require.Eventually(t, func() bool { return len(e.History().Entries) == 2 }, time.Second, 5*time.Millisecond)

	for i := 1; i <= 5; i++ {
		require.NoError(t, e.UpdateComponent(c.ID, Prop("fontSize", fmt.Sprintf("%dpx", 10+i))))
	}
	require.Eventually(t, func() bool { return len(e.History().Entries) == 3 }, time.Second, 5*time.Millisecond)

	// No stray records from the superseded timers.
	time.Sleep(100 * time.Millisecond)
	h := e.History()
	require.Len(t, h.Entries, 3)
	last := h.Entries[2]
	require.Equal(t, KindModify, last.Kind)
	require.Equal(t, c.ID, last.ComponentID)
	require.Equal(t, "fontSize", last.Key)
	require.Equal(t, "10px", last.OldValue)
	require.Equal(t, "15px", last.NewValue)

	require.NoError(t, e.Undo())
	got, _ := e.Component(c.ID)
	require.Equal(t, "10px", got.Props["fontSize"])
}

func TestEngine_IndependentKeysDoNotMerge(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))

	require.NoError(t, e.UpdateComponent(c.ID, Prop("top", "1px")))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("left", "2px")))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("top", "3px")))
	require.Equal(t, 2, e.Flush())

	h := e.History()
	require.Len(t, h.Entries, 3)
	require.Equal(t, "top", h.Entries[1].Key)
	require.Equal(t, "0px", h.Entries[1].OldValue)
	require.Equal(t, "3px", h.Entries[1].NewValue)
	require.Equal(t, "left", h.Entries[2].Key)
}

func TestEngine_StructuralOpCommitsPendingBurstFirst(t *testing.T) {
	e := newTestEngine(t)
	a := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "9px")))

	e.AddComponent(text("b"))
	h := e.History()
	require.Len(t, h.Entries, 3)
	require.Equal(t, []Kind{KindAdd, KindModify, KindAdd},
		[]Kind{h.Entries[0].Kind, h.Entries[1].Kind, h.Entries[2].Kind})
	require.Zero(t, h.Pending)
}

func TestEngine_UndoCommitsPendingBurstFirst(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("top", "9px")))

	require.NoError(t, e.Undo())
	got, ok := e.Component(c.ID)
	require.True(t, ok, "undo must revert the modify, not the add")
	require.Equal(t, "0px", got.Props["top"])
}

func TestEngine_ArrayKeyModify(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(models.Component{Name: "l-shape", Props: map[string]any{"top": 10, "left": 20}})

	require.NoError(t, e.UpdateComponent(c.ID, Props([]string{"top", "left"}, []any{15, 25})))
	e.Flush()

	entry := e.History().Entries[1]
	require.Equal(t, []string{"top", "left"}, entry.Key)
	require.Equal(t, []any{10, 20}, entry.OldValue)
	require.Equal(t, []any{15, 25}, entry.NewValue)

	require.NoError(t, e.Undo())
	got, _ := e.Component(c.ID)
	require.Equal(t, 10, got.Props["top"])
	require.Equal(t, 20, got.Props["left"])

	require.NoError(t, e.Redo())
	got, _ = e.Component(c.ID)
	require.Equal(t, 15, got.Props["top"])
	require.Equal(t, 25, got.Props["left"])
}

func TestEngine_NewKeyIsRemovedOnUndo(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("boxShadow", "1px 1px red")))
	e.Flush()

	entry := e.History().Entries[1]
	require.Nil(t, entry.OldValue)

	require.NoError(t, e.Undo())
	got, _ := e.Component(c.ID)
	require.NotContains(t, got.Props, "boxShadow")
	require.Equal(t, text("a").Props, got.Props)
}

func TestEngine_ComponentAttrsAreNotRecorded(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))

	require.NoError(t, e.SetComponentAttr(c.ID, AttrIsHidden, true))
	require.NoError(t, e.SetComponentAttr(c.ID, AttrLayerName, "Title"))
	require.ErrorIs(t, e.SetComponentAttr(c.ID, "zIndex", 3), ErrUnknownAttribute)
	require.ErrorIs(t, e.SetComponentAttr(c.ID, AttrIsLocked, "yes"), apperr.ErrInvalidInput)

	got, _ := e.Component(c.ID)
	require.True(t, got.IsHidden)
	require.Equal(t, "Title", got.LayerName)
	require.Zero(t, e.Flush())
	require.Len(t, e.History().Entries, 1)
}

func TestEngine_PageUpdates(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.UpdatePage(LevelProps, "backgroundColor", "#000000"))
	require.NoError(t, e.UpdatePage(LevelSetting, "shareTitle", "hello"))
	require.NoError(t, e.UpdatePage(LevelRoot, "title", "Landing"))
	require.ErrorIs(t, e.UpdatePage(LevelRoot, "author", "me"), ErrUnknownPageField)
	require.ErrorIs(t, e.UpdatePage("bogus", "x", 1), ErrUnknownPageField)
	require.Equal(t, 1, e.Flush())

	h := e.History()
	require.Len(t, h.Entries, 1, "only props are recorded")
	require.Empty(t, h.Entries[0].ComponentID)
	require.Equal(t, "#ffffff", h.Entries[0].OldValue)

	require.NoError(t, e.Undo())
	p := e.Page()
	require.Equal(t, "#ffffff", p.Props["backgroundColor"])
	require.Equal(t, "hello", p.Setting["shareTitle"])
	require.Equal(t, "Landing", p.Title)
}

func TestEngine_CopyPaste(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.Paste()
	require.ErrorIs(t, err, ErrNothingCopied)

	src := e.AddComponent(text("a"))
	require.ErrorIs(t, e.CopyComponent("missing"), ErrComponentNotFound)
	require.NoError(t, e.CopyComponent(src.ID))

	// Later edits to the source do not leak into the clipboard.
	require.NoError(t, e.UpdateComponent(src.ID, Prop("text", "changed")))

	pasted, err := e.Paste()
	require.NoError(t, err)
	require.NotEqual(t, src.ID, pasted.ID)
	require.Equal(t, "Layer 1 Copy", pasted.LayerName)
	require.Equal(t, "a", pasted.Props["text"])

	again, err := e.Paste()
	require.NoError(t, err)
	require.NotEqual(t, pasted.ID, again.ID)

	h := e.History()
	require.Len(t, h.Entries, 4)
	require.Equal(t, KindAdd, h.Entries[3].Kind)

	require.NoError(t, e.Undo())
	_, ok := e.Component(again.ID)
	require.False(t, ok)
}

func TestEngine_Move(t *testing.T) {
	e := newTestEngine(t)
	require.ErrorIs(t, e.Move(Down, 1), ErrNoSelection)

	c := e.AddComponent(models.Component{Name: "l-text", Props: map[string]any{"top": "10px"}})
	e.SetActive(c.ID)

	require.NoError(t, e.Move(Down, 5))
	require.NoError(t, e.Move(Down, 5))
	require.NoError(t, e.Move(Right, 3))
	require.NoError(t, e.Move(Up, 1))
	require.ErrorIs(t, e.Move("Diagonal", 1), ErrInvalidDirection)

	got, _ := e.Component(c.ID)
	require.Equal(t, "19px", got.Props["top"])
	require.Equal(t, "3px", got.Props["left"])

	require.Equal(t, 2, e.Flush(), "one burst per axis")
	require.NoError(t, e.Undo())
	require.NoError(t, e.Undo())
	got, _ = e.Component(c.ID)
	require.Equal(t, "10px", got.Props["top"])
	require.NotContains(t, got.Props, "left")
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("left")
	require.NoError(t, err)
	require.Equal(t, Left, d)

	_, err = ParseDirection("north")
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestLeadingInt(t *testing.T) {
	cases := map[any]int{
		"12px":  12,
		"-3px":  -3,
		"4.5em": 4,
		"px":    0,
		"":      0,
		7:       7,
		2.9:     2,
		true:    0,
	}
	for in, want := range cases {
		require.Equal(t, want, leadingInt(in), "input %v", in)
	}
	require.Zero(t, leadingInt(nil))
}

func TestEngine_Hydrate(t *testing.T) {
	e := newTestEngine(t)
	stale := e.AddComponent(text("old"))
	e.SetActive(stale.ID)
	require.NoError(t, e.UpdateComponent(stale.ID, Prop("top", "1px")))

	e.Hydrate(models.Work{
		ID:    "w1",
		Title: "Promo",
		Content: models.WorkContent{
			Components: []models.Component{{ID: "c1", Name: "l-text", Props: map[string]any{"text": "hi"}}},
			Props:      map[string]any{"backgroundColor": "#111111"},
			Setting:    map[string]any{"lang": "en"},
		},
	})

	st := e.Snapshot()
	require.Len(t, st.Components, 1)
	require.Equal(t, "c1", st.Components[0].ID)
	require.Equal(t, "w1", st.Page.ID)
	require.Equal(t, "Promo", st.Page.Title)
	require.Equal(t, "#111111", st.Page.Props["backgroundColor"])
	require.Equal(t, "560px", st.Page.Props["height"], "unset props keep their defaults")
	require.Equal(t, "en", st.Page.Setting["lang"])
	require.Empty(t, st.CurrentElement)
	require.Zero(t, st.HistoryLen)
	require.False(t, st.CanUndo)
	require.False(t, st.IsDirty)
	require.Zero(t, e.History().Pending)

	w := e.Export()
	require.Equal(t, "w1", w.ID)
	require.Equal(t, "hi", w.Content.Components[0].Props["text"])
}

func TestEngine_Reset(t *testing.T) {
	e := newTestEngine(t)
	c := e.AddComponent(text("a"))
	require.NoError(t, e.CopyComponent(c.ID))
	require.NoError(t, e.UpdatePage(LevelProps, "height", "900px"))

	e.Reset()
	st := e.Snapshot()
	require.Empty(t, st.Components)
	require.Equal(t, DefaultPageProps(), st.Page.Props)
	require.Zero(t, st.HistoryLen)
	_, err := e.Paste()
	require.ErrorIs(t, err, ErrNothingCopied)
}

func TestEngine_MarkSavedAndPublished(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEngine(t, WithClock(func() time.Time { return at }))
	e.AddComponent(text("a"))

	require.Equal(t, at, e.MarkSaved(time.Time{}))
	st := e.Snapshot()
	require.False(t, st.IsDirty)
	require.False(t, e.IsDirty())
	require.True(t, st.IsChangedNotPublished)
	require.Equal(t, at, st.Page.UpdatedAt)

	explicit := at.Add(time.Minute)
	require.Equal(t, explicit, e.MarkPublished(explicit.In(time.FixedZone("X", 3600))))
	st = e.Snapshot()
	require.False(t, st.IsChangedNotPublished)
	require.Equal(t, explicit, st.Page.LatestPublishAt)

	e.MarkTemplate()
	require.True(t, e.Export().IsTemplate)

	require.NoError(t, e.Undo())
	require.True(t, e.Snapshot().IsDirty, "undo is an edit")
}

func TestEngine_CheckpointGuardsLaterEdits(t *testing.T) {
	e := newTestEngine(t)
	a := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "5px")))

	w, rev := e.Checkpoint()
	require.Zero(t, e.History().Pending, "checkpoint commits pending bursts")
	require.Equal(t, "5px", w.Content.Components[0].Props["top"])

	require.NoError(t, e.UpdateComponent(a.ID, Prop("top", "9px")))
	require.False(t, e.MarkSavedAt(rev, time.Time{}))
	require.False(t, e.MarkPublishedAt(rev, time.Time{}))
	st := e.Snapshot()
	require.True(t, st.IsDirty)
	require.True(t, st.IsChangedNotPublished)

	w, rev = e.Checkpoint()
	require.Equal(t, "9px", w.Content.Components[0].Props["top"])
	require.True(t, e.MarkSavedAt(rev, time.Time{}))
	require.True(t, e.MarkPublishedAt(rev, time.Time{}))
	require.False(t, e.IsDirty())
}

func TestEngine_ListenerSeesCommittedState(t *testing.T) {
	var mu sync.Mutex
	var changes []Change
	var e *Engine
	e = newTestEngine(t, WithListener(func(c Change) {
		// The lock is released, so querying the engine must not deadlock.
		_ = e.CanUndo()
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	}))

	c := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("top", "5px")))
	require.Equal(t, 1, e.Flush())
	require.NoError(t, e.Undo())
	require.ErrorIs(t, e.DeleteComponent("missing"), ErrComponentNotFound)

	mu.Lock()
	defer mu.Unlock()
	ops := make([]Op, len(changes))
	for i, ch := range changes {
		ops[i] = ch.Op
	}
	require.Equal(t, []Op{OpAdd, OpModify, OpCommit, OpUndo}, ops, "failed operations are not reported")

	last := changes[len(changes)-1]
	require.Equal(t, 1, last.HistoryIndex)
	require.Equal(t, 2, last.HistoryLen)
	require.True(t, last.CanUndo)
	require.True(t, last.CanRedo)
}

func TestEngine_CloseDropsPendingBursts(t *testing.T) {
	e := New(WithCoalesceWindow(20 * time.Millisecond))
	c := e.AddComponent(text("a"))
	require.NoError(t, e.UpdateComponent(c.ID, Prop("top", "5px")))
	e.Close()

	time.Sleep(60 * time.Millisecond)
	require.Len(t, e.History().Entries, 1)
}

func TestEngine_ConcurrentWriters(t *testing.T) {
	e := newTestEngine(t, WithCoalesceWindow(time.Millisecond))
	c := e.AddComponent(text("a"))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", w)
			for i := 0; i < 50; i++ {
				_ = e.UpdateComponent(c.ID, Prop(key, i))
				if i%10 == 0 {
					_ = e.Undo()
					_ = e.Redo()
				}
			}
		}(w)
	}
	wg.Wait()
	e.Flush()

	st := e.Snapshot()
	require.LessOrEqual(t, st.HistoryLen, DefaultMaxHistory)
}
