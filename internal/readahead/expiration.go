package readahead

import "sync"

// ExpirationController adapts a ReadCache's expiration window to the recent
// success rate of memory admission for prefetch: a starved process gets a
// shorter cache lifetime (freeing memory sooner), a healthy one a longer
// one, sampled every sampleTicks ticks rather than reacting to every single
// admission.
type ExpirationController struct {
	mu sync.Mutex

	current, min, max MillisDuration
	sampleTicks       int

	tick, requested, successful int
}

// MillisDuration is a plain millisecond count, avoiding any ambiguity about
// sub-millisecond cache-expiration values the spec never contemplates.
type MillisDuration int64

// NewExpirationController builds a controller starting at initialMs,
// clamped to [minMs, maxMs], resampling every sampleTicks calls to
// RecordMemoryRequest (0 selects the spec default of 180).
func NewExpirationController(initialMs, minMs, maxMs MillisDuration, sampleTicks int) *ExpirationController {
	if sampleTicks <= 0 {
		sampleTicks = 180
	}
	return &ExpirationController{
		current:     initialMs,
		min:         minMs,
		max:         maxMs,
		sampleTicks: sampleTicks,
	}
}

// RecordMemoryRequest records the outcome of one memory-admission attempt
// (reserving bytes_to_read_from_cs). Every sampleTicks calls, the success
// rate over the window is used to halve (rate < 0.3) or double (rate > 0.8)
// the current expiration, then the window resets.
func (c *ExpirationController) RecordMemoryRequest(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requested++
	if success {
		c.successful++
	}
	c.tick++
	if c.tick < c.sampleTicks {
		return
	}

	rate := 1.0
	if c.requested > 0 {
		rate = float64(c.successful) / float64(c.requested)
	}
	switch {
	case rate < 0.3:
		c.current /= 2
		if c.current < c.min {
			c.current = c.min
		}
	case rate > 0.8:
		c.current *= 2
		if c.current > c.max {
			c.current = c.max
		}
	}

	c.tick, c.requested, c.successful = 0, 0, 0
}

// Current returns the controller's current expiration value in ms.
func (c *ExpirationController) Current() MillisDuration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}
