package alloc

import "sync/atomic"

// Stats is a snapshot of a Tracking allocator's counters.
type Stats struct {
	Allocs     int64 // Successful Alloc calls
	Deallocs   int64 // Dealloc calls
	Failures   int64 // Failed Alloc calls
	LiveBlocks int64 // Allocs - Deallocs
	LiveBytes  int64 // Bytes currently handed out
	PeakBytes  int64 // Highest LiveBytes observed
}

// Tracking wraps another allocator and counts its traffic.
// It is used to verify that every block is released exactly once.
type Tracking struct {
	inner Allocator

	allocs    atomic.Int64
	deallocs  atomic.Int64
	failures  atomic.Int64
	liveBytes atomic.Int64
	peakBytes atomic.Int64
}

// NewTracking wraps inner (the default allocator when nil).
func NewTracking(inner Allocator) *Tracking {
	return &Tracking{inner: OrDefault(inner)}
}

// Alloc implements Allocator.
func (t *Tracking) Alloc(layout Layout) (Block, error) {
	block, err := t.inner.Alloc(layout)
	if err != nil {
		t.failures.Add(1)
		return nil, err
	}
	t.allocs.Add(1)
	live := t.liveBytes.Add(int64(layout.Size))
	for {
		peak := t.peakBytes.Load()
		if live <= peak || t.peakBytes.CompareAndSwap(peak, live) {
			break
		}
	}
	return block, nil
}

// Dealloc implements Allocator.
func (t *Tracking) Dealloc(block Block, layout Layout) {
	t.deallocs.Add(1)
	t.liveBytes.Add(-int64(layout.Size))
	t.inner.Dealloc(block, layout)
}

// Stats returns a snapshot of the counters.
func (t *Tracking) Stats() Stats {
	allocs := t.allocs.Load()
	deallocs := t.deallocs.Load()
	return Stats{
		Allocs:     allocs,
		Deallocs:   deallocs,
		Failures:   t.failures.Load(),
		LiveBlocks: allocs - deallocs,
		LiveBytes:  t.liveBytes.Load(),
		PeakBytes:  t.peakBytes.Load(),
	}
}

// Inner returns the wrapped allocator.
func (t *Tracking) Inner() Allocator {
	return t.inner
}
