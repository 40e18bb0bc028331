// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package imgproc_test

import (
	"errors"
	"testing"

	"github.com/born-ml/vision/imgproc"
	"github.com/born-ml/vision/tensor"
)

// TestResizeAPI resizes through the public API with a tracked pool.
func TestResizeAPI(t *testing.T) {
	tracker := tensor.NewTracking(tensor.NewPool())

	img, err := imgproc.FromSizeVal[uint8](tracker, imgproc.ImageSize{Width: 4, Height: 4}, 3, 100)
	if err != nil {
		t.Fatalf("FromSizeVal failed: %v", err)
	}
	small, err := imgproc.Resize(img, imgproc.ImageSize{Width: 2, Height: 2}, imgproc.Bilinear, imgproc.WithWorkers(1))
	if err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	for i, v := range small.Data() {
		if v != 100 {
			t.Fatalf("data[%d] = %d, want 100", i, v)
		}
	}

	small.Release()
	img.Release()
	if live := tracker.Stats().LiveBlocks; live != 0 {
		t.Errorf("LiveBlocks = %d, want 0", live)
	}
}

// TestWarpAPI checks that translating out of frame blanks the output.
func TestWarpAPI(t *testing.T) {
	img, err := imgproc.FromSizeVal[float32](nil, imgproc.ImageSize{Width: 5, Height: 5}, 3, 1)
	if err != nil {
		t.Fatalf("FromSizeVal failed: %v", err)
	}
	defer img.Release()

	out, err := imgproc.WarpAffine(img, imgproc.Translation(50, 50), imgproc.ImageSize{Width: 3, Height: 2}, imgproc.Nearest)
	if err != nil {
		t.Fatalf("WarpAffine failed: %v", err)
	}
	defer out.Release()
	if got := out.Size(); got != (imgproc.ImageSize{Width: 3, Height: 2}) {
		t.Errorf("Size() = %v, want 3x2", got)
	}
	for i, v := range out.Data() {
		if v != 0 {
			t.Fatalf("data[%d] = %v, want 0", i, v)
		}
	}

	if _, err := imgproc.Rotate(img, 10, 0, imgproc.Bilinear); !errors.Is(err, imgproc.ErrInvalidMatrix) {
		t.Errorf("Rotate with zero scale: err = %v, want ErrInvalidMatrix", err)
	}
}
