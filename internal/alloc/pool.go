package alloc

import (
	"math/bits"
	"sync"
)

// Pool size classes are powers of two from 1<<minPoolShift to 1<<maxPoolShift bytes.
const (
	minPoolShift = 6  // 64 B
	maxPoolShift = 30 // 1 GiB
)

// Pool is an allocator that recycles released blocks through per-size-class sync.Pools.
//
// Requests are rounded up to the next power of two. Layouts larger than the
// biggest class or aligned beyond DefaultAlign bypass the pool and go straight to
// the CPU allocator. Blocks keep the capacity of their size class so Dealloc can
// return them whole. Pool must be used through a pointer; copies of the pointer
// share the same buckets.
type Pool struct {
	classes [maxPoolShift - minPoolShift + 1]sync.Pool
}

// NewPool creates an empty pool allocator.
func NewPool() *Pool {
	return &Pool{}
}

// Alloc implements Allocator.
func (p *Pool) Alloc(layout Layout) (Block, error) {
	if err := layout.Validate(); err != nil {
		return nil, &AllocationError{Op: "alloc", Layout: layout, Err: err}
	}

	class, ok := poolClass(layout)
	if !ok {
		return CPU{}.Alloc(layout)
	}

	if v := p.classes[class].Get(); v != nil {
		full := *(v.(*Block))
		return full[:layout.Size], nil
	}

	full, err := CPU{}.Alloc(Layout{Size: 1 << (class + minPoolShift), Align: DefaultAlign})
	if err != nil {
		return nil, err
	}
	return full[:layout.Size], nil
}

// Dealloc implements Allocator.
// The block returns to its size class and may be handed out again by Alloc.
func (p *Pool) Dealloc(block Block, layout Layout) {
	class, ok := poolClass(layout)
	if !ok || cap(block) != 1<<(class+minPoolShift) {
		return
	}
	full := block[:cap(block)]
	p.classes[class].Put(&full)
}

// poolClass maps a layout to its size class index.
func poolClass(layout Layout) (int, bool) {
	if layout.Align > DefaultAlign {
		return 0, false
	}
	shift := bits.Len(uint(layout.Size - 1))
	if shift < minPoolShift {
		shift = minPoolShift
	}
	if shift > maxPoolShift {
		return 0, false
	}
	return shift - minPoolShift, true
}
