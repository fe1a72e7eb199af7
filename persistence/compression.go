package persistence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how local collection files are compressed.
// Compressed files carry a suffix after ".json" and are self-describing
// on load.
type Compression string

const (
	// CompressionNone writes plain JSON files.
	CompressionNone Compression = "none"
	// CompressionZstd compresses files with zstandard (".json.zst").
	CompressionZstd Compression = "zstd"
	// CompressionLZ4 compresses files with lz4 (".json.lz4").
	CompressionLZ4 Compression = "lz4"
)

// Ext returns the file suffix appended after ".json".
func (c Compression) Ext() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// Compress encodes data with the selected compression.
func (c Compression) Compress(data []byte) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return data, nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case CompressionLZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}

// Decompress decodes data written by Compress.
func (c Compression) Decompress(data []byte) ([]byte, error) {
	switch c {
	case CompressionNone, "":
		return data, nil
	case CompressionZstd:
		return zstdDecoder.DecodeAll(data, nil)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return nil, fmt.Errorf("unknown compression %q", c)
	}
}
