package editor

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"time"
)

// DefaultCoalesceWindow is the quiescence window used when none is
// configured.
const DefaultCoalesceWindow = time.Second

// Burst is a run of writes to the same target and keys.
type Burst struct {
	// Target is the component id, or empty for the page.
	Target string
	Keys   []string
	List   bool
	// Old holds the values from before the first write of the burst.
	Old []any
	// New holds the values of the latest write.
	New []any
}

func (b Burst) slotKey() string {
	var sb strings.Builder
	sb.WriteString(b.Target)
	sb.WriteByte(0)
	if b.List {
		sb.WriteByte('[')
	}
	sb.WriteString(strings.Join(b.Keys, "\x00"))
	return sb.String()
}

type slot struct {
	burst Burst
	timer *time.Timer
	gen   uint64
	first uint64
}

// Coalescer debounces property writes. Each target and key set has its
// own slot: a write cancels the slot's pending timer, keeps the baseline
// captured by the first write and restarts the timer. When a timer fires
// the quiet callback receives the slot key and generation, and the owner
// claims the burst with Take.
//
// Pending slots of one target never share a key. A write whose keys
// overlap another slot closes that slot first, so bursts on the same
// property commit in the order they were written.
type Coalescer struct {
	mu      sync.Mutex
	window  time.Duration
	slots   map[string]*slot
	seq     uint64
	onQuiet func(key string, gen uint64)
}

// NewCoalescer creates a coalescer that calls onQuiet from the timer
// goroutine once a slot has seen no writes for window.
func NewCoalescer(window time.Duration, onQuiet func(key string, gen uint64)) *Coalescer {
	if window <= 0 {
		window = DefaultCoalesceWindow
	}
	return &Coalescer{
		window:  window,
		slots:   make(map[string]*slot),
		onQuiet: onQuiet,
	}
}

// Window returns the quiescence window.
func (c *Coalescer) Window() time.Duration {
	return c.window
}

// Submit registers one write. b.Old must hold the values just before this
// write; it only becomes the baseline when no burst is pending for the
// slot. Pending bursts on the same target whose keys overlap b's are
// closed and returned in write order; the caller must commit them before
// anything else.
func (c *Coalescer) Submit(b Burst) []Burst {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := b.slotKey()
	closed := c.closeOverlapping(key, b)
	c.seq++
	s, ok := c.slots[key]
	if ok {
		s.timer.Stop()
		s.burst.New = b.New
	} else {
		s = &slot{burst: b, first: c.seq}
		c.slots[key] = s
	}
	s.gen = c.seq

	gen := s.gen
	s.timer = time.AfterFunc(c.window, func() {
		if c.onQuiet != nil {
			c.onQuiet(key, gen)
		}
	})
	return closed
}

func (c *Coalescer) closeOverlapping(key string, b Burst) []Burst {
	var hits []*slot
	for k, s := range c.slots {
		if k == key || s.burst.Target != b.Target || !sharesKey(s.burst.Keys, b.Keys) {
			continue
		}
		s.timer.Stop()
		delete(c.slots, k)
		hits = append(hits, s)
	}
	return inWriteOrder(hits)
}

func sharesKey(a, b []string) bool {
	for _, k := range a {
		if slices.Contains(b, k) {
			return true
		}
	}
	return false
}

func inWriteOrder(slots []*slot) []Burst {
	if len(slots) == 0 {
		return nil
	}
	slices.SortFunc(slots, func(a, b *slot) int {
		return cmp.Compare(a.first, b.first)
	})
	out := make([]Burst, len(slots))
	for i, s := range slots {
		out[i] = s.burst
	}
	return out
}

// Take removes and returns the burst for key if it is still at generation
// gen. A timer that lost the race against a newer write gets false.
func (c *Coalescer) Take(key string, gen uint64) (Burst, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[key]
	if !ok || s.gen != gen {
		return Burst{}, false
	}
	delete(c.slots, key)
	return s.burst, true
}

// Drain stops every pending timer and returns the pending bursts in the
// order their first write arrived.
func (c *Coalescer) Drain() []Burst {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.slots) == 0 {
		return nil
	}
	pending := make([]*slot, 0, len(c.slots))
	for key, s := range c.slots {
		s.timer.Stop()
		pending = append(pending, s)
		delete(c.slots, key)
	}
	return inWriteOrder(pending)
}

// Discard stops every pending timer and forgets the bursts.
func (c *Coalescer) Discard() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.slots)
	for key, s := range c.slots {
		s.timer.Stop()
		delete(c.slots, key)
	}
	return n
}

// Pending returns the number of bursts waiting for quiescence.
func (c *Coalescer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}
