package serialization

import (
	"time"

	"github.com/born-ml/vision/internal/tensor"
)

// Format constants.
const (
	MagicBytes      = "BVT1"
	FormatVersion   = 1    // v1: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align tensor data to 64 bytes, matching alloc.DefaultAlign
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Flags for the .bvt format.
const (
	FlagCompressed  uint32 = 1 << 0 // bit 0: zstd compressed payload
	FlagHasMetadata uint32 = 1 << 1 // bit 1: custom metadata included
)

// Header is the JSON header of a .bvt file.
type Header struct {
	FormatVersion int               `json:"format_version"`     // Version of the .bvt format
	Creator       string            `json:"creator"`            // Version of the library that wrote the file
	CreatedAt     time.Time         `json:"created_at"`         // When the file was created
	DType         string            `json:"dtype"`              // Element type (e.g., "float32", "uint8")
	Shape         []int             `json:"shape"`              // Tensor shape
	Strides       []int             `json:"strides"`            // Element strides
	Size          int64             `json:"size"`               // Uncompressed payload size in bytes
	Metadata      map[string]string `json:"metadata,omitempty"` // Custom metadata
}

// DataType returns the parsed element type.
func (h *Header) DataType() (tensor.DataType, bool) {
	return tensor.ParseDataType(h.DType)
}

// padding returns the number of zero bytes that align pos to HeaderAlignment.
func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
