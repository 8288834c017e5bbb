package engine

// Clock is the monotonic logical clock that stamps session events.
//
// Each Session owns its own Clock, so seq values restart at 1 per session
// and a replayed script yields the same trace.
type Clock struct {
	seq int64
}

// NewClock creates a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new sequence number.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}
