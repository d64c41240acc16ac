package session

import "sync"

// ReportedClock adapts the front end's media element to the sequencer's
// Clock. The front end reports positions; seeks are recorded fire-and-forget
// and handed back on the next state poll.
type ReportedClock struct {
	mu      sync.Mutex
	pos     float64
	dur     float64
	pending *float64
}

func NewReportedClock(duration float64) *ReportedClock {
	return &ReportedClock{dur: duration}
}

// Report stores the media element's current position.
func (c *ReportedClock) Report(pos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = pos
}

func (c *ReportedClock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *ReportedClock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dur
}

// Seek records a pending seek and advances the observed position so the next
// tick sees the post-seek timestamp.
func (c *ReportedClock) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = t
	seek := t
	c.pending = &seek
}

// TakeSeek returns and clears the pending seek target, if any.
func (c *ReportedClock) TakeSeek() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	t := *c.pending
	c.pending = nil
	return t, true
}
