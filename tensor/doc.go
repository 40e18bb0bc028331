// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides allocator-backed, reference-counted tensors for the
// born-vision toolkit.
//
// # Overview
//
// A Tensor is a shape and strides over a Storage. Storage owns one contiguous
// block obtained from an Allocator and returns it to the same allocator, with
// the same layout, exactly once:
//   - Generic element types (float32, float64, int32, int64, uint8, bool)
//   - Pluggable allocators (CPU, Pool, Arena, Tracking)
//   - Zero-copy views (Permute, Reshape) that share storage
//
// # Basic Usage
//
//	import "github.com/born-ml/vision/tensor"
//
//	func main() {
//	    pool := tensor.NewPool()
//
//	    x, err := tensor.Zeros[float32](pool, tensor.Shape{2, 3})
//	    if err != nil {
//	        panic(err)
//	    }
//	    defer x.Release()
//
//	    x.Set(1.5, 0, 2)
//	    xt, _ := x.Permute(1, 0) // (3, 2) view of the same storage
//	    defer xt.Release()
//	}
//
// # Memory Management
//
// Every tensor holds one reference to its storage. Views retain it; Release
// drops the reference and the block goes back to its allocator when the last
// reference is gone. Zero-extent shapes are rejected.
package tensor
