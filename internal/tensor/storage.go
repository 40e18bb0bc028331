package tensor

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/born-ml/vision/internal/alloc"
)

// blockHandle owns one allocator block together with the allocator and layout
// that produced it, so the block can only ever be returned with its own layout.
type blockHandle struct {
	allocator alloc.Allocator
	layout    alloc.Layout
	block     alloc.Block
	freed     atomic.Bool
}

// free returns the block to its allocator. Only the first call has any effect.
func (h *blockHandle) free() {
	if !h.freed.CompareAndSwap(false, true) {
		return
	}
	h.allocator.Dealloc(h.block, h.layout)
	h.block = nil
}

// Storage is an owned, contiguous block of n elements of type T obtained from an
// allocator.
//
// Storage is reference counted: it starts with one reference, views that share
// it call Retain, and every owner calls Release exactly once (typically with
// defer). The block goes back to its allocator when the count reaches zero.
// Extra Release calls are no-ops, and a storage that becomes unreachable without
// being released is returned by a runtime cleanup, so the block is released
// exactly once on every path.
//
// Storage is not safe for concurrent mutation.
type Storage[T DType] struct {
	handle   *blockHandle
	data     []T
	refCount atomic.Int32
	cleanup  runtime.Cleanup
}

// NewStorage allocates zero-initialized storage for n elements.
// A nil allocator selects alloc.Default().
func NewStorage[T DType](a alloc.Allocator, n int) (*Storage[T], error) {
	a = alloc.OrDefault(a)

	layout, err := alloc.LayoutFor[T](n)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	block, err := a.Alloc(layout)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}
	if len(block) != layout.Size {
		a.Dealloc(block, layout)
		return nil, fmt.Errorf("failed to create storage: %w",
			&alloc.AllocationError{Op: "alloc", Layout: layout, Err: alloc.ErrInvalidBlock})
	}

	h := &blockHandle{allocator: a, layout: layout, block: block}
	s := &Storage[T]{
		handle: h,
		//nolint:gosec // G103: block is aligned for T and sized n*sizeof(T) by LayoutFor
		data: unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(block))), n),
	}
	clear(s.data) // Allocator contents are unspecified.
	s.refCount.Store(1)
	s.cleanup = runtime.AddCleanup(s, (*blockHandle).free, h)
	return s, nil
}

// StorageFromSlice allocates storage and copies data into it.
func StorageFromSlice[T DType](a alloc.Allocator, data []T) (*Storage[T], error) {
	s, err := NewStorage[T](a, len(data))
	if err != nil {
		return nil, err
	}
	copy(s.data, data)
	return s, nil
}

// Len returns the number of elements.
func (s *Storage[T]) Len() int {
	return len(s.data)
}

// ByteSize returns the size of the block in bytes.
func (s *Storage[T]) ByteSize() int {
	return s.handle.layout.Size
}

// Layout returns the layout the block was allocated with.
func (s *Storage[T]) Layout() alloc.Layout {
	return s.handle.layout
}

// Allocator returns the allocator that owns the block.
func (s *Storage[T]) Allocator() alloc.Allocator {
	return s.handle.allocator
}

// Data returns a read view of the elements.
//
// The view is valid while the storage is live. It must not be written to, and
// MutData must not be called while a read view is in use.
func (s *Storage[T]) Data() []T {
	return s.data
}

// MutData returns the exclusive mutable view of the elements.
// No other view may be in use while the mutable view is.
func (s *Storage[T]) MutData() []T {
	return s.data
}

// Bytes returns a read view of the raw block.
func (s *Storage[T]) Bytes() []byte {
	if s.Released() {
		return nil
	}
	return s.handle.block
}

// MutBytes returns the exclusive mutable view of the raw block, for decoders
// that fill storage directly. The same rules as MutData apply.
func (s *Storage[T]) MutBytes() []byte {
	return s.Bytes()
}

// Retain adds a reference for a new owner sharing this storage.
func (s *Storage[T]) Retain() *Storage[T] {
	s.refCount.Add(1)
	return s
}

// Release drops one reference and returns the block to its allocator when the
// last reference goes away.
func (s *Storage[T]) Release() {
	for {
		n := s.refCount.Load()
		if n <= 0 {
			return
		}
		if !s.refCount.CompareAndSwap(n, n-1) {
			continue
		}
		if n == 1 {
			s.cleanup.Stop()
			s.data = nil
			s.handle.free()
		}
		return
	}
}

// IsUnique returns true if this storage has exactly one owner.
func (s *Storage[T]) IsUnique() bool {
	return s.refCount.Load() == 1
}

// Released reports whether the block has been returned to the allocator.
func (s *Storage[T]) Released() bool {
	return s.handle.freed.Load()
}
