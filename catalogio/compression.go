package catalogio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the block compression of a stored catalog.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// CompressionFor returns the compression implied by a blob name.
func CompressionFor(name string) Compression {
	switch {
	case strings.HasSuffix(name, ".zst"):
		return CompressionZSTD
	case strings.HasSuffix(name, ".lz4"):
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

const (
	defaultBlockSize = 256 * 1024
	// maxBlockSize bounds the uncompressed size a block header may claim.
	maxBlockSize    = 64 << 20
	blockHeaderSize = 8
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlockSize))
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

var (
	errBlockTruncated = errors.New("block extends beyond data")
	errSizeMismatch   = errors.New("decompressed size mismatch")
	errBlockTooLarge  = errors.New("block size exceeds limit")
)

// compressBlock returns data framed with a block header. Blocks that do not
// shrink below 90% are stored raw.
func compressBlock(data []byte, c Compression) []byte {
	var compressed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err == nil && n > 0 {
			compressed = buf[:n]
		}
	case CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		putZstdEncoder(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		binary.LittleEndian.PutUint32(out[4:], 0)
		copy(out[blockHeaderSize:], data)
		return out
	}

	out := make([]byte, blockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[blockHeaderSize:], compressed)
	return out
}

func decompressBlock(src []byte, size uint32, c Compression) ([]byte, error) {
	result := make([]byte, size)

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(src, result)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errSizeMismatch
		}
		return result, nil

	case CompressionZSTD:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		decoded, err := dec.DecodeAll(src, result[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != size {
			return nil, errSizeMismatch
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("compressed block in %s catalog", c)
	}
}

// blockWriter buffers writes and emits compressed blocks.
type blockWriter struct {
	w           io.Writer
	compression Compression
	blockSize   int
	buffer      *bytes.Buffer
	written     int64
}

func newBlockWriter(w io.Writer, c Compression, blockSize int) *blockWriter {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	blockSize = min(blockSize, maxBlockSize)
	return &blockWriter{
		w:           w,
		compression: c,
		blockSize:   blockSize,
		buffer:      bytes.NewBuffer(make([]byte, 0, blockSize)),
	}
}

func (b *blockWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		space := b.blockSize - b.buffer.Len()
		if space <= 0 {
			if err := b.Flush(); err != nil {
				return total, err
			}
			space = b.blockSize
		}

		n, _ := b.buffer.Write(p[:min(len(p), space)])
		total += n
		p = p[n:]
	}
	return total, nil
}

// Flush compresses and writes the buffered block.
func (b *blockWriter) Flush() error {
	if b.buffer.Len() == 0 {
		return nil
	}

	n, err := b.w.Write(compressBlock(b.buffer.Bytes(), b.compression))
	b.written += int64(n)
	if err != nil {
		return err
	}
	b.buffer.Reset()
	return nil
}

// decompressAll concatenates the payloads of all blocks in data.
func decompressAll(data []byte, c Compression) ([]byte, error) {
	var (
		out []byte
		off int
	)
	for off < len(data) {
		if off+blockHeaderSize > len(data) {
			return nil, errBlockTruncated
		}
		size := binary.LittleEndian.Uint32(data[off:])
		csize := binary.LittleEndian.Uint32(data[off+4:])
		off += blockHeaderSize

		if size > maxBlockSize {
			return nil, fmt.Errorf("%w: %d bytes", errBlockTooLarge, size)
		}

		if csize == 0 {
			if off+int(size) > len(data) {
				return nil, errBlockTruncated
			}
			out = append(out, data[off:off+int(size)]...)
			off += int(size)
			continue
		}

		if off+int(csize) > len(data) {
			return nil, errBlockTruncated
		}
		block, err := decompressBlock(data[off:off+int(csize)], size, c)
		if err != nil {
			return nil, err
		}
		out = append(out, block...)
		off += int(csize)
	}
	return out, nil
}
