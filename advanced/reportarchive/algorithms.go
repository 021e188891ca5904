package reportarchive

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm compresses and decompresses a rotated-out report segment.
type Algorithm interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// LZ4 trades compression ratio for speed. SizePolicy picks it for
// mid-sized segments: at least four times MinSize and below ZstdAbove.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decompress(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

// Snappy favors decompression speed over ratio; useful when a report
// archive is read back often (e.g. by a CI artifact viewer).
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (Snappy) Decompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}

// ZSTD gives the best ratio, for segments that will sit archived long
// term and are rarely re-read.
type ZSTD struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (*ZSTD) Name() string { return "zstd" }

func (z *ZSTD) Compress(data []byte) ([]byte, error) {
	if z.encoder == nil {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		z.encoder = encoder
	}
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *ZSTD) Decompress(data []byte) ([]byte, error) {
	if z.decoder == nil {
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		z.decoder = decoder
	}
	return z.decoder.DecodeAll(data, nil)
}
