package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"unsafe"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// SafeTensor is one tensor read back from a SafeTensors file.
type SafeTensor struct {
	DType tensor.DataType
	Shape tensor.Shape
	Data  []byte // Row-major little-endian elements
}

// SafeTensorsFile is the decoded content of a SafeTensors file.
type SafeTensorsFile struct {
	Metadata map[string]string
	Tensors  map[string]SafeTensor
}

// Names returns the tensor names in sorted order.
func (f *SafeTensorsFile) Names() []string {
	names := make([]string, 0, len(f.Tensors))
	for name := range f.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadSafeTensors reads a whole SafeTensors file.
func ReadSafeTensors(path string, opts ReaderOptions) (*SafeTensorsFile, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for dataset loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	f, err := DecodeSafeTensors(file, info.Size(), opts)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return f, nil
}

// DecodeSafeTensors reads SafeTensors content of the given total size from r.
//
//nolint:gocognit,gocyclo,cyclop // Header validation is inherently branchy
func DecodeSafeTensors(r io.Reader, size int64, opts ReaderOptions) (*SafeTensorsFile, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize || int64(headerSize) > size-8 { //nolint:gosec // G115: bounded above
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	out := &SafeTensorsFile{Tensors: make(map[string]SafeTensor, len(rawMap))}
	headers := make(map[string]SafeTensorHeader, len(rawMap))
	metas := make([]TensorMeta, 0, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &out.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(value, &h); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		headers[key] = h
		metas = append(metas, TensorMeta{
			Name:   key,
			Offset: h.DataOffsets[0],
			Size:   h.DataOffsets[1] - h.DataOffsets[0],
		})
	}

	dataSize := size - 8 - int64(headerSize) //nolint:gosec // G115: bounded above
	if err := validateSafeTensors(metas, dataSize, opts.ValidationLevel); err != nil {
		return nil, err
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	for name, h := range headers {
		dt, ok := safeTensorsToDType(h.DType)
		if !ok {
			return nil, fmt.Errorf("tensor %s: %w: unsupported dtype %q", name, ErrDTypeMismatch, h.DType)
		}
		shape := make(tensor.Shape, len(h.Shape))
		for i, d := range h.Shape {
			shape[i] = int(d)
		}
		if err := shape.Validate(); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		start, end := h.DataOffsets[0], h.DataOffsets[1]
		if start < 0 || end < start || end > dataSize {
			return nil, fmt.Errorf("tensor %s: %w", name, ErrOutOfBounds)
		}
		if int64(shape.NumElements()*dt.Size()) != end-start {
			return nil, fmt.Errorf("tensor %s: %w: shape %v needs %d bytes, file has %d",
				name, tensor.ErrShapeMismatch, shape, shape.NumElements()*dt.Size(), end-start)
		}
		out.Tensors[name] = SafeTensor{DType: dt, Shape: shape, Data: data[start:end]}
	}

	return out, nil
}

// TensorAs copies a SafeTensor into a new row-major tensor of element type T.
// A nil allocator selects alloc.Default().
func TensorAs[T tensor.DType](st SafeTensor, a alloc.Allocator) (*tensor.Tensor[T], error) {
	if want := tensor.DataTypeOf[T](); st.DType != want {
		return nil, fmt.Errorf("%w: tensor holds %s, requested %s", ErrDTypeMismatch, st.DType, want)
	}
	var zero T
	n := len(st.Data) / int(unsafe.Sizeof(zero))
	if n != st.Shape.NumElements() {
		return nil, fmt.Errorf("%w: shape %v, %d elements", tensor.ErrShapeMismatch, st.Shape, n)
	}

	if st.DType == tensor.Bool {
		for i, b := range st.Data {
			if b > 1 {
				return nil, fmt.Errorf("%w: byte %d (%#x) is not a bool", ErrInvalidRecord, i, b)
			}
		}
	}

	storage, err := tensor.NewStorage[T](a, n)
	if err != nil {
		return nil, err
	}
	copy(storage.MutBytes(), st.Data)

	t, err := tensor.New(storage, st.Shape)
	if err != nil {
		storage.Release()
		return nil, err
	}
	return t, nil
}

// Lookup returns the named tensor.
func (f *SafeTensorsFile) Lookup(name string) (SafeTensor, error) {
	st, ok := f.Tensors[name]
	if !ok {
		return SafeTensor{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return st, nil
}
