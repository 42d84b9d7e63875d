package bucket

import (
	"sync"

	"github.com/Iron-Ham/prefixview/internal/parse"
)

// UngroupedKey is the bucket that receives lines without a group key:
// unparsable stdout lines and stderr lines the pattern did not route.
const UngroupedKey = ""

// DefaultScrollback is the per-sequence line limit used when none is configured.
const DefaultScrollback = 10000

// entry is one bucket. All fields are guarded by Store.mu.
type entry struct {
	lines        [numCategories]*ring
	unread       [numCategories]int
	unreadErrors [numCategories]int
	versions     [numCategories]uint64
	evicted      [numCategories]uint64
}

// Stats summarizes a bucket for the sidebar.
type Stats struct {
	Counts       [numCategories]int
	Unread       [numCategories]int
	UnreadErrors [numCategories]int
}

// Count returns the retained line count for a category.
func (s Stats) Count(c Category) int { return s.Counts[c] }

// TotalUnread sums unread lines across categories.
func (s Stats) TotalUnread() int {
	return s.Unread[0] + s.Unread[1] + s.Unread[2]
}

// TotalUnreadErrors sums unread error lines across categories.
func (s Stats) TotalUnreadErrors() int {
	return s.UnreadErrors[0] + s.UnreadErrors[1] + s.UnreadErrors[2]
}

// Window is a contiguous slice of one sequence, positioned relative to the
// newest line.
type Window struct {
	Lines []Line
	// Older is the number of retained lines before the window.
	Older int
	// Newer is the number of retained lines after the window.
	Newer int
	// Offset is the applied distance from the newest line, after clamping.
	Offset int
	// Total is the retained length of the sequence.
	Total int
}

// Store owns every captured line. Inserts come from the stream readers and
// snapshots from the dashboard; a single RWMutex makes each insert atomic
// from a reader's point of view. The lock is never held across I/O.
type Store struct {
	mu      sync.RWMutex
	limit   int
	keys    []string
	buckets map[string]*entry
}

// NewStore creates a store whose sequences each hold at most limit lines.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultScrollback
	}
	return &Store{
		limit:   limit,
		buckets: make(map[string]*entry),
	}
}

// Limit returns the per-sequence scrollback limit.
func (s *Store) Limit() int {
	return s.limit
}

// Route decides the bucket and category for a line from stream with the
// given classification.
func Route(stream Stream, c parse.Classification) (string, Category) {
	switch {
	case stream == StreamStderr && c.Routed:
		return c.Key, CategoryStderr
	case stream == StreamStderr:
		return UngroupedKey, CategoryStderr
	case c.Routed:
		return c.Key, CategoryMessages
	default:
		return UngroupedKey, CategoryUnparsable
	}
}

// Insert stores line according to its classification, creating the bucket
// on first use and evicting the oldest line of the target sequence when it
// is full. It returns where the line went.
func (s *Store) Insert(line Line, c parse.Classification) (string, Category) {
	key, cat := Route(line.Stream, c)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.buckets[key]
	if !ok {
		e = &entry{}
		for i := range e.lines {
			e.lines[i] = newRing(s.limit)
		}
		s.buckets[key] = e
		s.keys = append(s.keys, key)
	}

	if e.lines[cat].push(line) {
		e.evicted[cat]++
	}
	e.unread[cat]++
	if line.HasError {
		e.unreadErrors[cat]++
	}
	e.versions[cat]++

	return key, cat
}

// Snapshot returns a copy of one sequence, oldest first. An unknown key
// yields nil.
func (s *Store) Snapshot(key string, cat Category) []Line {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.buckets[key]
	if !ok {
		return nil
	}
	r := e.lines[cat]
	return r.slice(0, r.len())
}

// Window returns at most height lines ending offset lines before the
// newest one. Offset 0 follows the newest line; offsets past the oldest
// full window are clamped.
func (s *Store) Window(key string, cat Category, offset, height int) Window {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.buckets[key]
	if !ok || height <= 0 {
		return Window{}
	}

	r := e.lines[cat]
	total := r.len()
	maxOffset := total - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}

	end := total - offset
	start := end - height
	if start < 0 {
		start = 0
	}

	return Window{
		Lines:  r.slice(start, end),
		Older:  start,
		Newer:  total - end,
		Offset: offset,
		Total:  total,
	}
}

// GroupKeys returns bucket keys in first-seen order.
func (s *Store) GroupKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of buckets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// Stats returns counters for one bucket.
func (s *Store) Stats(key string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	if e, ok := s.buckets[key]; ok {
		for i := range e.lines {
			st.Counts[i] = e.lines[i].len()
		}
		st.Unread = e.unread
		st.UnreadErrors = e.unreadErrors
	}
	return st
}

// Totals returns retained line counts per category across all buckets.
func (s *Store) Totals() [numCategories]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out [numCategories]int
	for _, e := range s.buckets {
		for i := range e.lines {
			out[i] += e.lines[i].len()
		}
	}
	return out
}

// Evicted returns how many lines a sequence has dropped to stay within the limit.
func (s *Store) Evicted(key string, cat Category) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.buckets[key]; ok {
		return e.evicted[cat]
	}
	return 0
}

// MarkSeen clears the unread counters of one sequence.
func (s *Store) MarkSeen(key string, cat Category) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.buckets[key]; ok {
		e.unread[cat] = 0
		e.unreadErrors[cat] = 0
	}
}

// SequenceVersion increases on every insert into one sequence. Callers use
// it to tell whether a cached rendering of that sequence is stale.
func (s *Store) SequenceVersion(key string, cat Category) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.buckets[key]; ok {
		return e.versions[cat]
	}
	return 0
}

// NextUnread returns the index of the first bucket after index current
// (wrapping around, current itself checked last) that has unread errors,
// or failing that unread lines of any kind.
func (s *Store) NextUnread(current int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.keys)
	if n == 0 {
		return 0, false
	}

	find := func(match func(e *entry) bool) (int, bool) {
		for step := 1; step <= n; step++ {
			i := ((current+step)%n + n) % n
			if match(s.buckets[s.keys[i]]) {
				return i, true
			}
		}
		return 0, false
	}

	if i, ok := find(func(e *entry) bool {
		return e.unreadErrors[0]+e.unreadErrors[1]+e.unreadErrors[2] > 0
	}); ok {
		return i, true
	}
	return find(func(e *entry) bool {
		return e.unread[0]+e.unread[1]+e.unread[2] > 0
	})
}
