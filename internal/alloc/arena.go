package alloc

import (
	"fmt"
	"sync"
	"unsafe"
)

// Arena is a bump allocator over a single pre-allocated slab.
//
// Alloc carves aligned blocks off the slab; Dealloc is a no-op. All blocks are
// recycled at once by Reset, which must only be called when none of them is in
// use any more. Arena is safe for concurrent use.
type Arena struct {
	mu     sync.Mutex
	buf    []byte
	offset int // Bump pointer (offset into buf).
	peak   int // Highest offset reached since creation.
}

// NewArena creates an arena with the given capacity in bytes.
func NewArena(capacity int) (*Arena, error) {
	layout, err := NewLayout(capacity, DefaultAlign)
	if err != nil {
		return nil, fmt.Errorf("failed to create arena: %w", err)
	}
	buf, err := CPU{}.Alloc(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to create arena: %w", err)
	}
	return &Arena{buf: buf}, nil
}

// Alloc implements Allocator.
// It fails with ErrInvalidBlock once the slab is exhausted.
func (a *Arena) Alloc(layout Layout) (Block, error) {
	if err := layout.Validate(); err != nil {
		return nil, &AllocationError{Op: "alloc", Layout: layout, Err: err}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	//nolint:gosec // G103: address arithmetic only
	base := uintptr(unsafe.Pointer(unsafe.SliceData(a.buf)))
	start := int(alignUp(base+uintptr(a.offset), uintptr(layout.Align)) - base)
	if start > len(a.buf) || layout.Size > len(a.buf)-start {
		return nil, &AllocationError{
			Op:     "alloc",
			Layout: layout,
			Err: fmt.Errorf("%w: arena exhausted (used %d of %d bytes)",
				ErrInvalidBlock, a.offset, len(a.buf)),
		}
	}

	end := start + layout.Size
	a.offset = end
	a.peak = max(a.peak, end)
	return Block(a.buf[start:end:end]), nil
}

// Dealloc implements Allocator. Arena memory is reclaimed by Reset.
func (a *Arena) Dealloc(Block, Layout) {}

// Reset makes the whole slab available again.
// Blocks handed out before Reset must no longer be used.
func (a *Arena) Reset() {
	a.mu.Lock()
	a.offset = 0
	a.mu.Unlock()
}

// Capacity returns the slab size in bytes.
func (a *Arena) Capacity() int {
	return len(a.buf)
}

// Used returns the number of bytes handed out since the last Reset, including alignment padding.
func (a *Arena) Used() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.offset
}

// Peak returns the highest usage observed since the arena was created.
func (a *Arena) Peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.peak
}
