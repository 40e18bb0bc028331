// Package alloc provides the memory allocator abstraction used by tensor storage.
//
// An Allocator hands out raw, aligned byte blocks described by a Layout and takes
// them back with the identical Layout. Storage records both the allocator and the
// layout it used, so the pairing is fixed at construction time.
package alloc

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"
)

// DefaultAlign is the alignment used for tensor storage.
// 64 bytes keeps every block cache-line aligned and wide enough for any SIMD load.
const DefaultAlign = 64

// MaxSize is the largest block any allocator in this package will attempt to hand out.
const MaxSize = 1 << 46

// Layout describes the size and alignment requirements of a memory block.
type Layout struct {
	Size  int // Size in bytes, > 0.
	Align int // Alignment in bytes, a power of two.
}

// NewLayout creates a validated Layout.
func NewLayout(size, align int) (Layout, error) {
	l := Layout{Size: size, Align: align}
	if err := l.Validate(); err != nil {
		return Layout{}, &AllocationError{Op: "layout", Layout: l, Err: err}
	}
	return l, nil
}

// LayoutFor returns the layout for n elements of type T, aligned to at least DefaultAlign.
func LayoutFor[T any](n int) (Layout, error) {
	var zero T
	elemSize := int(unsafe.Sizeof(zero))
	align := max(int(unsafe.Alignof(zero)), DefaultAlign)

	if n <= 0 {
		return Layout{}, &AllocationError{
			Op:     "layout",
			Layout: Layout{Align: align},
			Err:    fmt.Errorf("%w: element count %d (must be > 0)", ErrInvalidLayout, n),
		}
	}
	if elemSize > 0 && n > math.MaxInt/elemSize {
		return Layout{}, &AllocationError{
			Op:     "layout",
			Layout: Layout{Align: align},
			Err:    fmt.Errorf("%w: %d elements of %d bytes overflow", ErrInvalidLayout, n, elemSize),
		}
	}
	return NewLayout(n*elemSize, align)
}

// Validate checks the layout parameters.
func (l Layout) Validate() error {
	if l.Size <= 0 {
		return fmt.Errorf("%w: size %d (must be > 0)", ErrInvalidLayout, l.Size)
	}
	if l.Align <= 0 || bits.OnesCount(uint(l.Align)) != 1 {
		return fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidLayout, l.Align)
	}
	if l.Size > MaxSize || l.Size > math.MaxInt-(l.Align-1) {
		return fmt.Errorf("%w: size %d with alignment %d exceeds the addressable limit", ErrInvalidLayout, l.Size, l.Align)
	}
	return nil
}

// String returns a compact representation of the layout.
func (l Layout) String() string {
	return fmt.Sprintf("Layout{size=%d, align=%d}", l.Size, l.Align)
}

// Block is a raw memory block returned by an Allocator.
// Its length is exactly Layout.Size and its first byte is aligned to Layout.Align.
type Block []byte

// Addr returns the address of the first byte of the block, or 0 for an empty block.
func (b Block) Addr() uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// Allocator acquires and releases raw memory blocks.
//
// Implementations must be safe for concurrent use by multiple goroutines without
// external synchronization. Allocator values are lightweight handles: copying one
// denotes the same allocation authority and never duplicates the resources behind it.
//
// Dealloc must be called with a block previously returned by Alloc on the same
// allocator and with exactly the same Layout, at most once per block. Violations of
// this contract are not detected: the abstraction keeps no per-block metadata that
// would make detection possible.
type Allocator interface {
	// Alloc returns a block satisfying the layout, or an *AllocationError.
	// The contents of the block are unspecified.
	Alloc(layout Layout) (Block, error)

	// Dealloc releases a block previously returned by Alloc with the same layout.
	Dealloc(block Block, layout Layout)
}

// DefaultAllocator is the allocator used when none is supplied.
//
// DefaultAllocator is safe to use from multiple goroutines.
var DefaultAllocator Allocator = CPU{}

// Default returns the package default allocator.
func Default() Allocator {
	return DefaultAllocator
}

// OrDefault returns a, or the default allocator when a is nil.
func OrDefault(a Allocator) Allocator {
	if a == nil {
		return DefaultAllocator
	}
	return a
}

// alignUp rounds addr up to the next multiple of align (a power of two).
func alignUp(addr, align uintptr) uintptr {
	return (addr + align - 1) &^ (align - 1)
}
