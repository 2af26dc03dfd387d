package client

import (
	"context"
	"io"
	"sync"
)

// progressTracker converts byte counts into integer percentages and only
// reports when the value grows. Nothing is reported once ctx is done.
type progressTracker struct {
	ctx     context.Context
	total   int64
	notify  ProgressFunc
	mu      sync.Mutex
	written int64
	last    int
}

func newProgressTracker(ctx context.Context, total int64, notify ProgressFunc) *progressTracker {
	return &progressTracker{ctx: ctx, total: total, notify: notify, last: -1}
}

func (p *progressTracker) add(n int) {
	if p.notify == nil || n <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.written += int64(n)
	percent := 100
	if p.total > 0 && p.written < p.total {
		percent = int(p.written * 100 / p.total)
	}
	if percent <= p.last || p.ctx.Err() != nil {
		return
	}
	p.last = percent
	p.notify(percent)
}

type countingReader struct {
	r       io.Reader
	tracker *progressTracker
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.tracker.add(n)
	return n, err
}
