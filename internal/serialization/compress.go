package serialization

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	},
}

// compressZstd compresses data. A non-default level gets a dedicated encoder.
func compressZstd(data []byte, level zstd.EncoderLevel) ([]byte, error) {
	var buf bytes.Buffer

	if level != 0 && level != zstd.SpeedDefault {
		enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(level))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			_ = enc.Close()
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	enc := zstdEncPool.Get().(*zstd.Encoder)
	enc.Reset(&buf)

	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		zstdEncPool.Put(enc)
		return nil, err
	}

	if err := enc.Close(); err != nil {
		zstdEncPool.Put(enc)
		return nil, err
	}

	zstdEncPool.Put(enc)
	return buf.Bytes(), nil
}

// decompressZstdInto decompresses exactly len(dst) bytes from r into dst and
// fails if the stream holds more or less than that.
func decompressZstdInto(dst []byte, r io.Reader) error {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)

	if err := dec.Reset(r); err != nil {
		return err
	}
	if _, err := io.ReadFull(dec, dst); err != nil {
		return fmt.Errorf("failed to decompress payload: %w", err)
	}
	var extra [1]byte
	if n, _ := dec.Read(extra[:]); n != 0 {
		return fmt.Errorf("%w: compressed payload is larger than declared", ErrOutOfBounds)
	}
	return nil
}
