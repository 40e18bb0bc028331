package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/vision/internal/tensor"
)

// RawTensor is the type-erased view of a tensor the SafeTensors writer needs.
// Every *tensor.Tensor[T] satisfies it.
type RawTensor interface {
	Shape() tensor.Shape
	DType() tensor.DataType
	Bytes() []byte
	IsContiguous() bool
}

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteSafeTensors writes named tensors to a SafeTensors file.
//
// Format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]
//
// Tensors are written in alphabetical order by name.
func WriteSafeTensors(path string, tensors map[string]RawTensor, metadata map[string]string) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for dataset export
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %q: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriter(file)
	if err := EncodeSafeTensors(bw, tensors, metadata); err != nil {
		return err
	}
	return bw.Flush()
}

// EncodeSafeTensors writes named tensors in SafeTensors format to w.
// Every tensor must be contiguous; call Contiguous on views first.
func EncodeSafeTensors(w io.Writer, tensors map[string]RawTensor, metadata map[string]string) error {
	// Sort tensor names alphabetically (SafeTensors requirement)
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var currentOffset int64
	for _, name := range names {
		raw := tensors[name]
		if !raw.IsContiguous() {
			return fmt.Errorf("tensor %s: %w", name, tensor.ErrNotContiguous)
		}
		data := raw.Bytes()
		if data == nil {
			return fmt.Errorf("tensor %s: %w", name, tensor.ErrReleased)
		}
		dtype, ok := dtypeToSafeTensors(raw.DType())
		if !ok {
			return fmt.Errorf("tensor %s: %w: %s has no SafeTensors equivalent", name, ErrDTypeMismatch, raw.DType())
		}

		shape := raw.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}

		size := int64(len(data))
		header[name] = SafeTensorHeader{
			DType:       dtype,
			Shape:       shapeInt64,
			DataOffsets: [2]int64{currentOffset, currentOffset + size},
		}
		currentOffset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, name := range names {
		if _, err := w.Write(tensors[name].Bytes()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}

	return nil
}

// dtypeToSafeTensors converts tensor.DataType to the SafeTensors dtype string.
func dtypeToSafeTensors(dt tensor.DataType) (string, bool) {
	switch dt {
	case tensor.Float32:
		return "F32", true
	case tensor.Float64:
		return "F64", true
	case tensor.Int32:
		return "I32", true
	case tensor.Int64:
		return "I64", true
	case tensor.Uint8:
		return "U8", true
	case tensor.Bool:
		return "BOOL", true
	default:
		return "", false
	}
}

// safeTensorsToDType is the inverse of dtypeToSafeTensors.
func safeTensorsToDType(s string) (tensor.DataType, bool) {
	for dt := tensor.Float32; dt <= tensor.Bool; dt++ {
		if name, ok := dtypeToSafeTensors(dt); ok && name == s {
			return dt, true
		}
	}
	return 0, false
}
