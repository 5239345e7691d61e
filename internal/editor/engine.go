package editor

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/pagecraft/internal/models"
)

// Op names the engine operation that produced a Change.
type Op string

const (
	OpAdd     Op = "add"
	OpDelete  Op = "delete"
	OpModify  Op = "modify"
	OpCommit  Op = "commit"
	OpUndo    Op = "undo"
	OpRedo    Op = "redo"
	OpHydrate Op = "hydrate"
	OpReset   Op = "reset"
	OpSave    Op = "save"
	OpPublish Op = "publish"
)

// Change is passed to the Listener after an operation changed state.
type Change struct {
	Op           Op   `json:"op"`
	HistoryIndex int  `json:"historyIndex"`
	HistoryLen   int  `json:"historyLength"`
	CanUndo      bool `json:"canUndo"`
	CanRedo      bool `json:"canRedo"`
}

// Listener observes engine changes. It is called without the engine lock
// held, so it may query the engine.
type Listener func(Change)

// Engine applies mutations to a Store and records them in a Ledger. All
// methods are safe for concurrent use; mutations are serialised, which
// matches the single-writer model of the editor UI.
type Engine struct {
	mu sync.Mutex

	store     *Store
	ledger    *Ledger
	coalescer *Coalescer

	copied  *models.Component
	current string
	editing string

	dirty               bool
	changedNotPublished bool
	// revision counts edits; a save only clears dirty for the revision it
	// exported.
	revision uint64

	newID    func() string
	now      func() time.Time
	logger   *slog.Logger
	listener Listener

	maxHistory int
	window     time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxHistory sets the ledger capacity.
func WithMaxHistory(n int) Option {
	return func(e *Engine) {
		e.maxHistory = n
	}
}

// WithCoalesceWindow sets the quiescence window for property bursts.
func WithCoalesceWindow(d time.Duration) Option {
	return func(e *Engine) {
		e.window = d
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator replaces the uuid generator for component and record ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock replaces time.Now.
func WithClock(fn func() time.Time) Option {
	return func(e *Engine) {
		if fn != nil {
			e.now = fn
		}
	}
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		e.listener = l
	}
}

// New creates an engine over a blank page.
func New(opts ...Option) *Engine {
	e := &Engine{
		store:  NewStore(),
		newID:  uuid.NewString,
		now:    time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = NewLedger(e.maxHistory)
	e.coalescer = NewCoalescer(e.window, e.commitQuiet)
	return e
}

// State is a point-in-time copy of everything the editor UI renders.
type State struct {
	Components            []models.Component `json:"components"`
	Page                  models.Page        `json:"page"`
	CurrentElement        string             `json:"currentElement"`
	CurrentEditing        string             `json:"currentEditing"`
	IsDirty               bool               `json:"isDirty"`
	IsChangedNotPublished bool               `json:"isChangedNotPublished"`
	HistoryIndex          int                `json:"historyIndex"`
	HistoryLen            int                `json:"historyLength"`
	CanUndo               bool               `json:"canUndo"`
	CanRedo               bool               `json:"canRedo"`
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Components:            e.store.Components(),
		Page:                  e.store.Page(),
		CurrentElement:        e.current,
		CurrentEditing:        e.editing,
		IsDirty:               e.dirty,
		IsChangedNotPublished: e.changedNotPublished,
		HistoryIndex:          e.ledger.Cursor(),
		HistoryLen:            e.ledger.Len(),
		CanUndo:               e.ledger.CanUndo(),
		CanRedo:               e.ledger.CanRedo(),
	}
}

// Components returns a deep copy of the components in order.
func (e *Engine) Components() []models.Component {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Components()
}

// Component returns a deep copy of the component with id.
func (e *Engine) Component(id string) (models.Component, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.store.Find(id)
	if !ok {
		return models.Component{}, false
	}
	return cloneComponent(*c), true
}

// Page returns a deep copy of the page.
func (e *Engine) Page() models.Page {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Page()
}

// CanUndo reports whether Undo has a record to revert.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.CanUndo()
}

// CanRedo reports whether Redo has a record to reapply.
func (e *Engine) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.CanRedo()
}

// History describes the ledger for history panels.
type History struct {
	Entries      []Entry `json:"histories"`
	HistoryIndex int     `json:"historyIndex"`
	Max          int     `json:"max"`
	Pending      int     `json:"pending"`
}

// History returns the ledger entries, oldest first, and the cursor.
func (e *Engine) History() History {
	e.mu.Lock()
	defer e.mu.Unlock()

	return History{
		Entries:      e.ledger.Entries(),
		HistoryIndex: e.ledger.Cursor(),
		Max:          e.ledger.Max(),
		Pending:      e.coalescer.Pending(),
	}
}

// CurrentElement returns the id of the selected component.
func (e *Engine) CurrentElement() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// SetActive selects the component that Move and id-less updates target.
func (e *Engine) SetActive(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = id
}

// SetEditing marks the component being edited inline.
func (e *Engine) SetEditing(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = id
}

// Hydrate loads a persisted work. Work metadata and content props/setting
// are merged over the current page, components are replaced, and history,
// pending bursts and selection are cleared.
func (e *Engine) Hydrate(w models.Work) {
	e.mutate(OpHydrate, func() error {
		dropped := e.coalescer.Discard()

		page := e.store.Page()
		page.ID = w.ID
		page.Title = w.Title
		page.Desc = w.Desc
		page.CoverImg = w.CoverImg
		page.UUID = w.UUID
		page.Author = w.Author
		page.IsTemplate = w.IsTemplate
		page.LatestPublishAt = w.LatestPublishAt
		page.UpdatedAt = w.UpdatedAt
		maps.Copy(page.Props, cloneProps(w.Content.Props))
		maps.Copy(page.Setting, cloneProps(w.Content.Setting))

		e.store.Replace(page, cloneComponents(w.Content.Components))
		e.ledger.Reset()
		e.current = ""
		e.editing = ""
		e.dirty = false
		e.changedNotPublished = false

		e.logger.Debug("editor: hydrated",
			slog.String("work_id", w.ID),
			slog.Int("components", len(w.Content.Components)),
			slog.Int("dropped_bursts", dropped))
		return nil
	})
}

// Reset returns the engine to a blank page with an empty history.
func (e *Engine) Reset() {
	e.mutate(OpReset, func() error {
		e.coalescer.Discard()
		e.store = NewStore()
		e.ledger.Reset()
		e.copied = nil
		e.current = ""
		e.editing = ""
		e.dirty = false
		e.changedNotPublished = false
		return nil
	})
}

// Export returns the current state as a persistable work document.
func (e *Engine) Export() models.Work {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exportLocked()
}

// Checkpoint commits pending bursts and exports the result together with
// its revision. Hand the revision to MarkSavedAt or MarkPublishedAt once
// the work is persisted.
func (e *Engine) Checkpoint() (models.Work, uint64) {
	var (
		w   models.Work
		rev uint64
	)
	e.mutate(OpCommit, func() error {
		n := e.flushLocked()
		w = e.exportLocked()
		rev = e.revision
		if n == 0 {
			return errNoChange
		}
		return nil
	})
	return w, rev
}

func (e *Engine) exportLocked() models.Work {
	p := e.store.Page()
	return models.Work{
		ID:              p.ID,
		Title:           p.Title,
		Desc:            p.Desc,
		CoverImg:        p.CoverImg,
		UUID:            p.UUID,
		Author:          p.Author,
		IsTemplate:      p.IsTemplate,
		LatestPublishAt: p.LatestPublishAt,
		UpdatedAt:       p.UpdatedAt,
		Content: models.WorkContent{
			Components: e.store.Components(),
			Props:      p.Props,
			Setting:    p.Setting,
		},
	}
}

// MarkSaved clears the dirty flag and stamps the update time. A zero at
// uses the engine clock.
func (e *Engine) MarkSaved(at time.Time) time.Time {
	at, _ = e.markSaved(at, nil)
	return at
}

// MarkSavedAt is MarkSaved for a work exported by Checkpoint at rev. The
// dirty flag stays set when an edit landed after rev, and the result
// reports whether it was cleared.
func (e *Engine) MarkSavedAt(rev uint64, at time.Time) bool {
	_, clean := e.markSaved(at, &rev)
	return clean
}

func (e *Engine) markSaved(at time.Time, rev *uint64) (time.Time, bool) {
	var clean bool
	e.mutate(OpSave, func() error {
		at = e.stamp(at)
		e.store.page.UpdatedAt = at
		if rev == nil || *rev == e.revision {
			e.dirty = false
			clean = true
		}
		return nil
	})
	return at, clean
}

// MarkPublished clears the unpublished-changes flag and stamps the publish
// time. A zero at uses the engine clock.
func (e *Engine) MarkPublished(at time.Time) time.Time {
	at, _ = e.markPublished(at, nil)
	return at
}

// MarkPublishedAt is MarkPublished for a work exported by Checkpoint at
// rev, with the same rule as MarkSavedAt.
func (e *Engine) MarkPublishedAt(rev uint64, at time.Time) bool {
	_, clean := e.markPublished(at, &rev)
	return clean
}

func (e *Engine) markPublished(at time.Time, rev *uint64) (time.Time, bool) {
	var clean bool
	e.mutate(OpPublish, func() error {
		at = e.stamp(at)
		e.store.page.LatestPublishAt = at
		if rev == nil || *rev == e.revision {
			e.changedNotPublished = false
			clean = true
		}
		return nil
	})
	return at, clean
}

func (e *Engine) stamp(at time.Time) time.Time {
	if at.IsZero() {
		at = e.now()
	}
	return at.UTC()
}

// IsDirty reports whether the page changed since it was loaded or saved.
func (e *Engine) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// MarkTemplate flags the page as a template.
func (e *Engine) MarkTemplate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.page.IsTemplate = true
}

// Flush commits every pending burst now instead of waiting for quiescence.
// The listener is only called when something was committed.
func (e *Engine) Flush() int {
	var n int
	e.mutate(OpCommit, func() error {
		n = e.flushLocked()
		if n == 0 {
			return errNoChange
		}
		return nil
	})
	return n
}

// Close stops pending timers. Bursts that have not reached quiescence are
// dropped without a record.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := e.coalescer.Discard(); n > 0 {
		e.logger.Debug("editor: dropped pending bursts on close", slog.Int("count", n))
	}
}

// mutate runs fn under the lock and notifies the listener once the lock is
// released. A failed fn is not reported.
func (e *Engine) mutate(op Op, fn func() error) error {
	return e.apply(func() (Op, error) {
		if err := fn(); err != nil {
			return "", err
		}
		return op, nil
	})
}

// apply runs fn under the lock. fn returns the op to report, empty for
// none, and the caller's error. The two are independent so an operation
// can fail after changing state.
func (e *Engine) apply(fn func() (Op, error)) error {
	e.mu.Lock()
	op, err := fn()
	var ch Change
	if op != "" {
		ch = e.changeLocked(op)
	}
	e.mu.Unlock()

	if op != "" && e.listener != nil {
		e.listener(ch)
	}
	return err
}

func (e *Engine) changeLocked(op Op) Change {
	return Change{
		Op:           op,
		HistoryIndex: e.ledger.Cursor(),
		HistoryLen:   e.ledger.Len(),
		CanUndo:      e.ledger.CanUndo(),
		CanRedo:      e.ledger.CanRedo(),
	}
}

func (e *Engine) touch() {
	e.revision++
	e.dirty = true
	e.changedNotPublished = true
}

func (e *Engine) push(componentID string, data Payload) {
	r := Record{
		ID:          e.newID(),
		ComponentID: componentID,
		Data:        data,
		CreatedAt:   e.now(),
	}
	res := e.ledger.Push(r)
	e.logger.Debug("editor: history pushed",
		slog.String("record_id", r.ID),
		slog.String("kind", string(r.Kind())),
		slog.String("component_id", componentID),
		slog.Int("truncated", res.Truncated),
		slog.Bool("evicted", res.Evicted),
		slog.Int("length", e.ledger.Len()))
}

// commitQuiet is the coalescer callback; it runs on the timer goroutine.
func (e *Engine) commitQuiet(key string, gen uint64) {
	e.mutate(OpCommit, func() error {
		b, ok := e.coalescer.Take(key, gen)
		if !ok {
			return errNoChange
		}
		e.commitBurst(b)
		return nil
	})
}

func (e *Engine) flushLocked() int {
	bursts := e.coalescer.Drain()
	for _, b := range bursts {
		e.commitBurst(b)
	}
	return len(bursts)
}

func (e *Engine) commitBurst(b Burst) {
	e.push(b.Target, ModifyData{
		Keys: b.Keys,
		List: b.List,
		Old:  b.Old,
		New:  b.New,
	})
}
