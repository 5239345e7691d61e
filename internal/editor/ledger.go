package editor

// DefaultMaxHistory is the ledger capacity used when none is configured.
const DefaultMaxHistory = 20

// Ledger is the linear history of records plus the undo/redo cursor.
//
// The cursor is -1 while nothing has been undone. Otherwise it is the index
// of the record that was last undone or that will be redone next. It may
// equal the length after every undone record has been redone.
type Ledger struct {
	records []Record
	cursor  int
	max     int
}

// NewLedger creates an empty ledger holding at most max records.
func NewLedger(max int) *Ledger {
	if max <= 0 {
		max = DefaultMaxHistory
	}
	return &Ledger{cursor: -1, max: max}
}

// PushResult reports what a push discarded.
type PushResult struct {
	Truncated int
	Evicted   bool
}

// Push appends r. Records from the cursor onward are discarded first, and
// the oldest record is evicted when the ledger is full.
func (l *Ledger) Push(r Record) PushResult {
	var res PushResult
	if l.cursor != -1 {
		keep := min(l.cursor, len(l.records))
		res.Truncated = len(l.records) - keep
		clear(l.records[keep:])
		l.records = l.records[:keep]
		l.cursor = -1
	}
	if len(l.records) >= l.max {
		excess := len(l.records) - l.max + 1
		clear(l.records[:excess])
		l.records = l.records[excess:]
		res.Evicted = true
	}
	l.records = append(l.records, r)
	return res
}

// StepBack moves the cursor one record back and returns the record now
// under it for inverse application. It reports false when there is
// nothing left to undo.
func (l *Ledger) StepBack() (Record, bool) {
	if !l.CanUndo() {
		return Record{}, false
	}
	if l.cursor == -1 {
		l.cursor = len(l.records) - 1
	} else {
		l.cursor--
	}
	return l.records[l.cursor], true
}

// StepForward returns the record under the cursor for forward application
// and advances the cursor. It reports false unless something was undone.
func (l *Ledger) StepForward() (Record, bool) {
	if !l.CanRedo() {
		return Record{}, false
	}
	r := l.records[l.cursor]
	l.cursor++
	return r, true
}

// CanUndo is false when the ledger is empty or every record is undone.
func (l *Ledger) CanUndo() bool {
	return len(l.records) != 0 && l.cursor != 0
}

// CanRedo is false when the ledger is empty, nothing was undone, or every
// undone record has been redone.
func (l *Ledger) CanRedo() bool {
	return len(l.records) != 0 && l.cursor != -1 && l.cursor < len(l.records)
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	return len(l.records)
}

// Cursor returns the current cursor.
func (l *Ledger) Cursor() int {
	return l.cursor
}

// Max returns the ledger capacity.
func (l *Ledger) Max() int {
	return l.max
}

// At returns the record at index i.
func (l *Ledger) At(i int) (Record, bool) {
	if i < 0 || i >= len(l.records) {
		return Record{}, false
	}
	return l.records[i], true
}

// Entries summarises every record, oldest first.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.records))
	for i, r := range l.records {
		out[i] = r.entry()
	}
	return out
}

// Reset drops all records and moves the cursor back to -1.
func (l *Ledger) Reset() {
	clear(l.records)
	l.records = l.records[:0]
	l.cursor = -1
}
