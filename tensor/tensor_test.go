// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"errors"
	"testing"

	"github.com/born-ml/vision/tensor"
)

// TestAllocatorImplementations verifies the exported allocators satisfy Allocator.
func TestAllocatorImplementations(_ *testing.T) {
	var _ tensor.Allocator = tensor.CPU{}
	var _ tensor.Allocator = (*tensor.Pool)(nil)
	var _ tensor.Allocator = (*tensor.Arena)(nil)
	var _ tensor.Allocator = (*tensor.Tracking)(nil)
}

// TestTensorAPI exercises the public constructors and views.
func TestTensorAPI(t *testing.T) {
	tracker := tensor.NewTracking(tensor.NewPool())

	x, err := tensor.FromSlice(tracker, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if x.DType() != tensor.Float32 {
		t.Errorf("DType() = %v, want Float32", x.DType())
	}

	xt, err := x.Permute(1, 0)
	if err != nil {
		t.Fatalf("Permute failed: %v", err)
	}
	if got := xt.At(2, 1); got != 6 {
		t.Errorf("At(2, 1) = %v, want 6", got)
	}
	if xt.IsContiguous() {
		t.Error("permuted view should not be contiguous")
	}

	u, err := tensor.Cast[float32, uint8](xt, nil, 10)
	if err != nil {
		t.Fatalf("Cast failed: %v", err)
	}
	want := []uint8{10, 40, 20, 50, 30, 60}
	for i, v := range u.Data() {
		if v != want[i] {
			t.Errorf("Cast data[%d] = %d, want %d", i, v, want[i])
		}
	}

	u.Release()
	xt.Release()
	x.Release()
	if s := tracker.Stats(); s.LiveBlocks != 0 || s.Allocs != 2 {
		t.Errorf("Stats() = %+v, want 2 allocs and no live blocks", s)
	}
}

// TestPublicErrors verifies the re-exported sentinels match internal errors.
func TestPublicErrors(t *testing.T) {
	if _, err := tensor.Zeros[int32](nil, tensor.Shape{2, 0}); !errors.Is(err, tensor.ErrInvalidShape) {
		t.Errorf("Zeros with zero extent: err = %v, want ErrInvalidShape", err)
	}
	if _, err := tensor.NewLayout(8, 3); !errors.Is(err, tensor.ErrInvalidLayout) {
		t.Errorf("NewLayout with bad alignment: err = %v, want ErrInvalidLayout", err)
	}

	s, err := tensor.NewStorage[float64](tensor.DefaultAllocator(), 4)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	if _, err := tensor.New(s, tensor.Shape{3}); !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Errorf("New with wrong shape: err = %v, want ErrShapeMismatch", err)
	}
	s.Release()
	if _, err := tensor.New(s, tensor.Shape{4}); !errors.Is(err, tensor.ErrReleased) {
		t.Errorf("New on released storage: err = %v, want ErrReleased", err)
	}

	if dt, ok := tensor.ParseDataType("uint8"); !ok || dt != tensor.DataTypeOf[uint8]() {
		t.Errorf("ParseDataType(uint8) = %v, %v", dt, ok)
	}
}
