package bucket

// ring is a bounded FIFO of lines.
//
// It behaves like the byte ring buffer used for instance output capture,
// but stores whole lines and grows lazily: a fresh ring holds no backing
// array, and capacity doubles up to limit as lines arrive, so idle buckets
// stay cheap even with a large scrollback limit.
//
// Visual example with limit 4:
//
//	push a,b,c:  [a, b, c, _]  start=0, n=3
//	push d:      [a, b, c, d]  start=0, n=4 (full)
//	push e:      [e, b, c, d]  start=1, n=4 → lines b, c, d, e
//
// ring is not safe for concurrent use; Store serializes access.
type ring struct {
	buf   []Line
	start int
	n     int
	limit int
}

const minRingCapacity = 16

func newRing(limit int) *ring {
	if limit < 1 {
		limit = 1
	}
	return &ring{limit: limit}
}

// push appends a line, evicting the oldest when the ring is at its limit.
// Returns true if a line was evicted.
func (r *ring) push(l Line) bool {
	if r.n == len(r.buf) && len(r.buf) < r.limit {
		r.grow()
	}

	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = l
		r.n++
		return false
	}

	r.buf[r.start] = l
	r.start = (r.start + 1) % len(r.buf)
	return true
}

// grow doubles the backing array (capped at limit) and linearizes it.
func (r *ring) grow() {
	newCap := len(r.buf) * 2
	if newCap < minRingCapacity {
		newCap = minRingCapacity
	}
	if newCap > r.limit {
		newCap = r.limit
	}

	buf := make([]Line, newCap)
	for i := 0; i < r.n; i++ {
		buf[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	r.buf = buf
	r.start = 0
}

func (r *ring) len() int {
	return r.n
}

// slice copies the logical range [from, to) oldest first.
func (r *ring) slice(from, to int) []Line {
	if from < 0 {
		from = 0
	}
	if to > r.n {
		to = r.n
	}
	if from >= to {
		return nil
	}

	out := make([]Line, to-from)
	for i := range out {
		out[i] = r.buf[(r.start+from+i)%len(r.buf)]
	}
	return out
}
