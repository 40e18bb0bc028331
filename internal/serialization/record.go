package serialization

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"reflect"
	"unsafe"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// Record is the logical serialized form of a tensor: the storage elements in
// memory order, the shape and the strides. Nothing else is recorded; in
// particular the allocator is not part of the wire form.
//
// JSON form:
//
//	{"data": [...], "shape": [...], "strides": [...]}
type Record[T tensor.DType] struct {
	Data    Elements[T] `json:"data"`
	Shape   []int       `json:"shape"`
	Strides []int       `json:"strides"`
}

// Elements is the flat element sequence of a Record.
//
// It encodes as a JSON array for every element type, including uint8, which
// encoding/json would otherwise emit as a base64 string.
type Elements[T tensor.DType] []T

// MarshalJSON implements json.Marshaler.
func (e Elements[T]) MarshalJSON() ([]byte, error) {
	if b, ok := asBytes([]T(e)); ok {
		wide := make([]uint16, len(b))
		for i, v := range b {
			wide[i] = uint16(v)
		}
		return json.Marshal(wide)
	}
	return json.Marshal([]T(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Elements[T]) UnmarshalJSON(data []byte) error {
	if reflect.TypeFor[T]().Kind() == reflect.Uint8 {
		var wide []uint16
		if err := json.Unmarshal(data, &wide); err != nil {
			return err
		}
		out := make([]T, len(wide))
		b, _ := asBytes(out)
		for i, v := range wide {
			if v > 0xFF {
				return fmt.Errorf("%w: element %d (%d) overflows uint8", ErrInvalidRecord, i, v)
			}
			b[i] = uint8(v)
		}
		*e = out
		return nil
	}

	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*e = out
	return nil
}

// asBytes views s as []uint8 when T's underlying type is uint8.
func asBytes[T tensor.DType](s []T) ([]uint8, bool) {
	if reflect.TypeFor[T]().Kind() != reflect.Uint8 {
		return nil, false
	}
	return unsafe.Slice((*uint8)(unsafe.Pointer(unsafe.SliceData(s))), len(s)), true
}

// ToRecord captures the tensor's storage elements, shape and strides.
// The data is copied; the record does not alias the tensor.
func ToRecord[T tensor.DType](t *tensor.Tensor[T]) (Record[T], error) {
	if t.Storage().Released() {
		return Record[T]{}, tensor.ErrReleased
	}
	return Record[T]{
		Data:    append(Elements[T](nil), t.Data()...),
		Shape:   append([]int(nil), t.Shape()...),
		Strides: append([]int(nil), t.Strides()...),
	}, nil
}

// Option configures decoding.
type Option func(*decodeOptions)

type decodeOptions struct {
	allocator alloc.Allocator
}

// WithAllocator makes decoders allocate storage from a instead of alloc.Default().
func WithAllocator(a alloc.Allocator) Option {
	return func(o *decodeOptions) {
		o.allocator = a
	}
}

func applyOptions(opts []Option) decodeOptions {
	o := decodeOptions{allocator: alloc.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.allocator == nil {
		o.allocator = alloc.Default()
	}
	return o
}

// Validate checks the record against the expected rank: shape and strides
// must both have rank entries, every extent must be positive, and the shape
// must account for exactly len(Data) elements.
func (r Record[T]) Validate(rank int) error {
	return validateLayout(r.Shape, r.Strides, len(r.Data), rank)
}

func validateLayout(shape, strides []int, count, rank int) error {
	if len(shape) != rank {
		return fmt.Errorf("%w: expected rank %d, shape %v has rank %d",
			tensor.ErrRankMismatch, rank, shape, len(shape))
	}
	if len(strides) != rank {
		return fmt.Errorf("%w: expected %d strides, got %d", tensor.ErrRankMismatch, rank, len(strides))
	}
	if err := tensor.Shape(shape).Validate(); err != nil {
		return err
	}
	if n := tensor.Shape(shape).NumElements(); n != count {
		return fmt.Errorf("%w: shape %v requires %d elements, record has %d",
			tensor.ErrShapeMismatch, shape, n, count)
	}

	// Decoded strides must address elements inside the record.
	last := 0
	for i, st := range strides {
		if st < 0 || (shape[i] > 1 && st > (count-1)/(shape[i]-1)) {
			return fmt.Errorf("%w: stride %d out of range for dimension %d", ErrInvalidRecord, st, i)
		}
		last += (shape[i] - 1) * st
		if last >= count {
			return fmt.Errorf("%w: strides %v address beyond %d elements", ErrInvalidRecord, strides, count)
		}
	}
	return nil
}

// FromRecord builds a tensor of the given rank from a record.
// The record is fully validated before any storage is allocated.
func FromRecord[T tensor.DType](rec Record[T], rank int, opts ...Option) (*tensor.Tensor[T], error) {
	if err := rec.Validate(rank); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	storage, err := tensor.StorageFromSlice(o.allocator, []T(rec.Data))
	if err != nil {
		return nil, err
	}
	t, err := tensor.NewWithStrides(storage, tensor.Shape(rec.Shape), rec.Strides)
	if err != nil {
		storage.Release()
		return nil, err
	}
	return t, nil
}

// MarshalJSON encodes a tensor as a JSON record.
//
// JSON has no representation for NaN or ±Inf, so float tensors holding them
// fail to encode; GobSerialize round-trips them.
func MarshalJSON[T tensor.DType](t *tensor.Tensor[T]) ([]byte, error) {
	rec, err := ToRecord(t)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tensor: %w", err)
	}
	return data, nil
}

// UnmarshalJSON decodes a JSON record into a tensor of the given rank.
func UnmarshalJSON[T tensor.DType](data []byte, rank int, opts ...Option) (*tensor.Tensor[T], error) {
	var rec Record[T]
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tensor: %w", err)
	}
	return FromRecord(rec, rank, opts...)
}

// GobSerialize writes the tensor's record to the encoder.
func GobSerialize[T tensor.DType](encoder *gob.Encoder, t *tensor.Tensor[T]) error {
	rec, err := ToRecord(t)
	if err != nil {
		return err
	}
	if err := encoder.Encode(rec); err != nil {
		return fmt.Errorf("failed to write tensor record: %w", err)
	}
	return nil
}

// GobDeserialize reads one record from the decoder and builds a tensor of the given rank.
func GobDeserialize[T tensor.DType](decoder *gob.Decoder, rank int, opts ...Option) (*tensor.Tensor[T], error) {
	var rec Record[T]
	if err := decoder.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to read tensor record: %w", err)
	}
	return FromRecord(rec, rank, opts...)
}

// GobMarshal is a convenience wrapper around GobSerialize that returns the encoded bytes.
func GobMarshal[T tensor.DType](t *tensor.Tensor[T]) ([]byte, error) {
	var buf bytes.Buffer
	if err := GobSerialize(gob.NewEncoder(&buf), t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GobUnmarshal is the inverse of GobMarshal.
func GobUnmarshal[T tensor.DType](data []byte, rank int, opts ...Option) (*tensor.Tensor[T], error) {
	return GobDeserialize[T](gob.NewDecoder(bytes.NewReader(data)), rank, opts...)
}
