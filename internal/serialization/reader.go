package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// ReaderOptions configures .bvt and SafeTensors decoding.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
	Allocator              alloc.Allocator // Storage allocator (alloc.Default() when nil)
}

// fileInfo is the decoded fixed header plus the JSON header.
type fileInfo struct {
	flags       uint32
	headerSize  uint64
	payloadSize uint64
	checksum    [ChecksumSize]byte
	header      Header
}

func (fi *fileInfo) compressed() bool {
	return fi.flags&FlagCompressed != 0
}

// readFileInfo reads the fixed header and the JSON header, leaving r
// positioned at the start of the padding.
func readFileInfo(r io.Reader) (*fileInfo, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, fmt.Errorf("%w: got %q, expected %q", ErrInvalidMagic, fixedHeader[0:4], MagicBytes)
	}
	if version := binary.LittleEndian.Uint32(fixedHeader[4:8]); version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	fi := &fileInfo{
		flags:       binary.LittleEndian.Uint32(fixedHeader[8:12]),
		headerSize:  binary.LittleEndian.Uint64(fixedHeader[16:24]),
		payloadSize: binary.LittleEndian.Uint64(fixedHeader[24:32]),
	}
	copy(fi.checksum[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	if fi.headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}
	if fi.payloadSize > alloc.MaxSize {
		return nil, fmt.Errorf("%w: payload size %d", ErrOutOfBounds, fi.payloadSize)
	}

	headerBytes := make([]byte, fi.headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(headerBytes, &fi.header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	return fi, nil
}

// ReadHeader reads only the headers of a .bvt stream.
func ReadHeader(r io.Reader) (Header, error) {
	fi, err := readFileInfo(r)
	if err != nil {
		return Header{}, err
	}
	return fi.header, nil
}

// ReadTensor reads a .bvt stream into a tensor of the given rank.
//
// The header is validated against T and rank before storage is allocated;
// the payload is then decoded straight into the new storage.
//
//nolint:gocyclo,cyclop // Binary format validation is inherently branchy
func ReadTensor[T tensor.DType](r io.Reader, rank int, opts ReaderOptions) (*tensor.Tensor[T], Header, error) {
	fi, err := readFileInfo(r)
	if err != nil {
		return nil, Header{}, err
	}
	h := fi.header

	want := tensor.DataTypeOf[T]()
	if dt, ok := h.DataType(); !ok || dt != want {
		return nil, h, fmt.Errorf("%w: file holds %q, requested %s", ErrDTypeMismatch, h.DType, want)
	}
	if h.Size <= 0 || h.Size%int64(want.Size()) != 0 {
		return nil, h, &ValidationError{
			Type:    "invalid_size",
			Details: fmt.Sprintf("payload size %d is not a positive multiple of %d", h.Size, want.Size()),
			Err:     ErrInvalidRecord,
		}
	}
	count := int(h.Size / int64(want.Size()))
	if err := validateLayout(h.Shape, h.Strides, count, rank); err != nil {
		return nil, h, err
	}
	if !fi.compressed() && fi.payloadSize != uint64(h.Size) {
		return nil, h, &ValidationError{
			Type:    "out_of_bounds",
			Details: fmt.Sprintf("stored payload %d bytes, header declares %d", fi.payloadSize, h.Size),
			Err:     ErrOutOfBounds,
		}
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	if _, err := io.CopyN(io.Discard, r, padding(int64(FixedHeaderSize)+int64(fi.headerSize))); err != nil {
		return nil, h, fmt.Errorf("failed to read padding: %w", err)
	}

	a := opts.Allocator
	if a == nil {
		a = alloc.Default()
	}
	storage, err := tensor.NewStorage[T](a, count)
	if err != nil {
		return nil, h, err
	}

	t, err := fillStorage(storage, r, fi, opts)
	if err != nil {
		storage.Release()
		return nil, h, err
	}
	return t, h, nil
}

func fillStorage[T tensor.DType](storage *tensor.Storage[T], r io.Reader, fi *fileInfo, opts ReaderOptions) (*tensor.Tensor[T], error) {
	buf := storage.MutBytes()
	payload := io.LimitReader(r, int64(fi.payloadSize)) //nolint:gosec // G115: bounded by alloc.MaxSize

	if fi.compressed() {
		if err := decompressZstdInto(buf, payload); err != nil {
			return nil, err
		}
	} else if _, err := io.ReadFull(payload, buf); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(buf), fi.checksum); err != nil {
			return nil, err
		}
	}
	if tensor.DataTypeOf[T]() == tensor.Bool {
		for i, b := range buf {
			if b > 1 {
				return nil, fmt.Errorf("%w: byte %d (%#x) is not a bool", ErrInvalidRecord, i, b)
			}
		}
	}

	return tensor.NewWithStrides(storage, tensor.Shape(fi.header.Shape), fi.header.Strides)
}

// Load reads a .bvt file into a tensor of the given rank.
func Load[T tensor.DType](path string, rank int, opts ReaderOptions) (*tensor.Tensor[T], Header, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for tensor loading
	file, err := os.Open(path)
	if err != nil {
		return nil, Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Read-only, close error carries no data loss
	}()

	t, h, err := ReadTensor[T](bufio.NewReader(file), rank, opts)
	if err != nil {
		return nil, h, fmt.Errorf("loading tensor from %q: %w", path, err)
	}
	return t, h, nil
}

// Stat reads the headers of a .bvt file without loading the payload.
func Stat(path string) (Header, error) {
	//nolint:gosec // G304: File path comes from user input
	file, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	h, err := ReadHeader(bufio.NewReader(file))
	if err != nil {
		return Header{}, fmt.Errorf("reading header of %q: %w", path, err)
	}
	return h, nil
}
