// Package serialization converts tensors to and from external forms.
//
// Three forms are supported:
//
//   - Record: the logical form {data, shape, strides}, encoded with
//     encoding/json or encoding/gob. It carries no allocator identity;
//     decoding builds fresh storage through alloc.Default() unless an
//     allocator is supplied with WithAllocator.
//   - .bvt: a single-tensor binary file.
//   - SafeTensors: named, row-major tensors in the HuggingFace layout.
//
// The .bvt format:
//
//	Fixed header (64 bytes):
//	  0x00  [4 bytes: Magic "BVT1"]
//	  0x04  [4 bytes: Version (uint32 LE)]
//	  0x08  [4 bytes: Flags (uint32 LE)]
//	  0x0C  [4 bytes: Reserved]
//	  0x10  [8 bytes: Header size (uint64 LE)]
//	  0x18  [8 bytes: Payload size as stored (uint64 LE)]
//	  0x20  [32 bytes: SHA-256 of the uncompressed payload]
//	[Header: JSON metadata]
//	[Padding to 64 bytes]
//	[Payload: raw little-endian elements, zstd-compressed when FlagCompressed is set]
//
// Every decoder checks rank, stride count and element count before any storage
// is allocated.
//
// Example usage:
//
//	// Save a tensor
//	if err := serialization.Save("frame.bvt", img, serialization.WriterOptions{Compress: true}); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load it back as a rank-3 uint8 tensor
//	t, _, err := serialization.Load[uint8]("frame.bvt", 3, serialization.ReaderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Release()
package serialization
