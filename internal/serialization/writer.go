package serialization

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/born-ml/vision/internal/tensor"
)

const creator = "born-vision v0.1.0"

// WriterOptions configures .bvt encoding.
type WriterOptions struct {
	Compress bool              // Compress the payload with zstd
	Level    zstd.EncoderLevel // Compression level (zero selects zstd.SpeedDefault)
	Metadata map[string]string // Custom metadata stored in the JSON header
}

// WriteTensor writes t to w in .bvt format.
//
// The payload is the storage block as is, together with the tensor's strides,
// so non-contiguous views round-trip bit-exactly.
func WriteTensor[T tensor.DType](w io.Writer, t *tensor.Tensor[T], opts WriterOptions) error {
	raw := t.Bytes()
	if raw == nil {
		return tensor.ErrReleased
	}

	header := Header{
		FormatVersion: FormatVersion,
		Creator:       creator,
		CreatedAt:     time.Now().UTC(),
		DType:         t.DType().String(),
		Shape:         append([]int(nil), t.Shape()...),
		Strides:       append([]int(nil), t.Strides()...),
		Size:          int64(len(raw)),
		Metadata:      opts.Metadata,
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > MaxHeaderSize {
		return ErrHeaderTooLarge
	}

	checksum := ComputeChecksum(raw)

	payload := raw
	flags := uint32(0)
	if opts.Compress {
		payload, err = compressZstd(raw, opts.Level)
		if err != nil {
			return fmt.Errorf("failed to compress payload: %w", err)
		}
		flags |= FlagCompressed
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	fixedHeader := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes
	copy(fixedHeader[0:4], MagicBytes)

	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	// 0x08-0x0B: Flags
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	// 0x0C-0x0F: Reserved (0)

	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))

	// 0x18-0x1F: Stored payload size
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(payload)))

	// 0x20-0x3F: SHA-256 checksum of the uncompressed payload
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := w.Write(fixedHeader); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	if pad := padding(int64(FixedHeaderSize + len(headerJSON))); pad > 0 {
		if _, err := w.Write(make([]byte, pad)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}

// Save writes t to a .bvt file at path.
func Save[T tensor.DType](path string, t *tensor.Tensor[T], opts WriterOptions) (err error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for tensor saving
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
	if err := WriteTensor(bw, t, opts); err != nil {
		return fmt.Errorf("saving tensor to %q: %w", path, err)
	}
	return bw.Flush()
}
