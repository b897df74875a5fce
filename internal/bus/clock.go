package bus

import "sync/atomic"

// clock stamps events with a strictly increasing sequence number.
// Safe for concurrent use.
type clock struct {
	seq atomic.Int64
}

// next returns the next sequence number; the first call returns 1.
func (c *clock) next() int64 {
	return c.seq.Add(1)
}
