package stats

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Counter collects the outcome of all units of one run. It is safe for
// concurrent use.
type Counter struct {
	found     int64
	succeeded int64
	empty     int64
	failed    int64
	points    int64
	start     time.Time
}

func NewCounter(found int) *Counter {
	return &Counter{
		found: int64(found),
		start: time.Now(),
	}
}

// Add records a finished unit with n points. Units without points are
// counted as empty, not as succeeded.
func (c *Counter) Add(n int64) {
	atomic.AddInt64(&c.points, n)
	if n > 0 {
		atomic.AddInt64(&c.succeeded, 1)
	} else {
		atomic.AddInt64(&c.empty, 1)
	}
}

func (c *Counter) Fail() {
	atomic.AddInt64(&c.failed, 1)
}

func (c *Counter) Summary() Summary {
	var d time.Duration
	if !c.start.IsZero() {
		d = time.Since(c.start)
	}
	return Summary{
		Found:     atomic.LoadInt64(&c.found),
		Succeeded: atomic.LoadInt64(&c.succeeded),
		Empty:     atomic.LoadInt64(&c.empty),
		Failed:    atomic.LoadInt64(&c.failed),
		Points:    atomic.LoadInt64(&c.points),
		Duration:  d,
	}
}

type Summary struct {
	Found     int64
	Succeeded int64
	Empty     int64
	Failed    int64
	Points    int64
	Duration  time.Duration
}

// Rps returns processed points per second.
func (s Summary) Rps() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Points) / s.Duration.Seconds()
}

func (s Summary) String() string {
	return fmt.Sprintf("%d found, %d succeeded, %d empty, %d failed, %d points (%.0f/s)",
		s.Found, s.Succeeded, s.Empty, s.Failed, s.Points, s.Rps())
}
