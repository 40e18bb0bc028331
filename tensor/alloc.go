// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/vision/internal/alloc"

// Allocator hands out aligned byte blocks and takes them back.
// Implementations must be safe for concurrent use.
type Allocator = alloc.Allocator

// Layout is the size and alignment of a block.
type Layout = alloc.Layout

// AllocationError reports a failed Alloc.
type AllocationError = alloc.AllocationError

// Allocator implementations.
type (
	// CPU forwards to the Go runtime allocator.
	CPU = alloc.CPU
	// Pool recycles blocks by size class.
	Pool = alloc.Pool
	// Arena is a bump allocator reset as a whole.
	Arena = alloc.Arena
	// Tracking counts the traffic of another allocator.
	Tracking = alloc.Tracking
	// AllocStats is a snapshot of Tracking counters.
	AllocStats = alloc.Stats
)

// Allocation errors.
var (
	ErrInvalidLayout = alloc.ErrInvalidLayout
	ErrInvalidBlock  = alloc.ErrInvalidBlock
)

// DefaultAllocator returns the allocator used when nil is passed.
func DefaultAllocator() Allocator {
	return alloc.Default()
}

// NewLayout validates size and alignment.
func NewLayout(size, align int) (Layout, error) {
	return alloc.NewLayout(size, align)
}

// NewPool creates a size-class pool allocator.
func NewPool() *Pool {
	return alloc.NewPool()
}

// NewArena creates an arena with capacity bytes.
func NewArena(capacity int) (*Arena, error) {
	return alloc.NewArena(capacity)
}

// NewTracking wraps inner (DefaultAllocator when nil) with counters.
func NewTracking(inner Allocator) *Tracking {
	return alloc.NewTracking(inner)
}
