package catalogio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nbrsim/xmatch/blobstore"
	"github.com/nbrsim/xmatch/catalog"
	"github.com/nbrsim/xmatch/codec"
	"github.com/nbrsim/xmatch/internal/hash"
)

const (
	magic   = "XMCT"
	version = 1
)

// Catalog kinds stored in the envelope.
const (
	KindDetections = "detections"
	KindTruth      = "truth"
	KindAugmented  = "augmented"
)

var (
	// ErrBadHeader is returned when a blob is not a catalog, uses an unknown
	// codec or compression, or its compression contradicts its name.
	ErrBadHeader = errors.New("catalogio: bad header")

	// ErrKindMismatch is returned when a blob holds a different kind of
	// catalog than requested.
	ErrKindMismatch = errors.New("catalogio: kind mismatch")

	// ErrChecksum is returned when the decoded payload does not match the
	// checksum in the header.
	ErrChecksum = errors.New("catalogio: checksum mismatch")
)

// KindError reports the kind found in a blob.
type KindError struct {
	Name string
	Want string
	Got  string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("catalogio: %s holds a %s catalog, want %s", e.Name, e.Got, e.Want)
}

func (e *KindError) Unwrap() error { return ErrKindMismatch }

// Limiter throttles blob reads. resource.Controller implements it.
type Limiter interface {
	WaitIO(ctx context.Context, n int64) error
}

type options struct {
	codec       codec.Codec
	compression *Compression
	blockSize   int
	limiter     Limiter
}

// Option configures a read or write.
type Option func(*options)

// WithCodec sets the codec used for writing. Reads always use the codec named
// in the header.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = c
	}
}

// WithCompression overrides the compression implied by the blob name.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

// WithBlockSize sets the uncompressed block size for writing.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithLimiter throttles reads by blob size.
func WithLimiter(l Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

func buildOptions(optFns []Option) options {
	o := options{codec: codec.Default, blockSize: defaultBlockSize}
	for _, fn := range optFns {
		fn(&o)
	}
	if o.codec == nil {
		o.codec = codec.Default
	}
	return o
}

type envelope[T any] struct {
	Kind string `json:"kind"`
	Rows []T    `json:"rows"`
}

// ReadDetections reads a detection catalog.
func ReadDetections(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (catalog.Detections, error) {
	rows, err := read[catalog.Detection](ctx, store, name, KindDetections, optFns)
	return catalog.Detections(rows), err
}

// ReadTruth reads a truth catalog.
func ReadTruth(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (catalog.Truths, error) {
	rows, err := read[catalog.Truth](ctx, store, name, KindTruth, optFns)
	return catalog.Truths(rows), err
}

// ReadAugmented reads an augmented detection catalog.
func ReadAugmented(ctx context.Context, store blobstore.BlobStore, name string, optFns ...Option) (catalog.AugmentedCatalog, error) {
	rows, err := read[catalog.Augmented](ctx, store, name, KindAugmented, optFns)
	return catalog.AugmentedCatalog(rows), err
}

// WriteDetections writes a detection catalog.
func WriteDetections(ctx context.Context, store blobstore.BlobStore, name string, rows catalog.Detections, optFns ...Option) error {
	return write(ctx, store, name, KindDetections, []catalog.Detection(rows), optFns)
}

// WriteTruth writes a truth catalog.
func WriteTruth(ctx context.Context, store blobstore.BlobStore, name string, rows catalog.Truths, optFns ...Option) error {
	return write(ctx, store, name, KindTruth, []catalog.Truth(rows), optFns)
}

// WriteAugmented writes an augmented detection catalog.
func WriteAugmented(ctx context.Context, store blobstore.BlobStore, name string, rows catalog.AugmentedCatalog, optFns ...Option) error {
	return write(ctx, store, name, KindAugmented, []catalog.Augmented(rows), optFns)
}

func read[T any](ctx context.Context, store blobstore.BlobStore, name, kind string, optFns []Option) ([]T, error) {
	o := buildOptions(optFns)

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("catalogio: open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	if o.limiter != nil {
		if err := o.limiter.WaitIO(ctx, blob.Size()); err != nil {
			return nil, err
		}
	}

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("catalogio: read %s: %w", name, err)
	}

	h, body, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadHeader, name, err)
	}
	if want := CompressionFor(name); want != CompressionNone && want != h.compression {
		return nil, fmt.Errorf("%w: %s: name implies %s, header says %s", ErrBadHeader, name, want, h.compression)
	}

	payload, err := decompressAll(body, h.compression)
	if err != nil {
		return nil, fmt.Errorf("catalogio: decompress %s: %w", name, err)
	}
	if sum := hash.CRC32C(payload); sum != h.checksum {
		return nil, fmt.Errorf("%w: %s: got %08x, header says %08x", ErrChecksum, name, sum, h.checksum)
	}

	var env envelope[T]
	if err := h.codec.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("catalogio: decode %s: %w", name, err)
	}
	if env.Kind != kind {
		return nil, &KindError{Name: name, Want: kind, Got: env.Kind}
	}
	if env.Rows == nil {
		env.Rows = []T{}
	}
	return env.Rows, nil
}

func write[T any](ctx context.Context, store blobstore.BlobStore, name, kind string, rows []T, optFns []Option) error {
	o := buildOptions(optFns)

	comp := CompressionFor(name)
	if o.compression != nil {
		comp = *o.compression
	}

	if rows == nil {
		rows = []T{}
	}
	payload, err := o.codec.Marshal(envelope[T]{Kind: kind, Rows: rows})
	if err != nil {
		return fmt.Errorf("catalogio: encode %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := writeHeader(&buf, header{codec: o.codec, compression: comp, checksum: hash.CRC32C(payload)}); err != nil {
		return err
	}
	bw := newBlockWriter(&buf, comp, o.blockSize)
	if _, err := bw.Write(payload); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if err := store.Put(ctx, name, buf.Bytes()); err != nil {
		return fmt.Errorf("catalogio: write %s: %w", name, err)
	}
	return nil
}

type header struct {
	codec       codec.Codec
	compression Compression
	checksum    uint32
}

func writeHeader(buf *bytes.Buffer, h header) error {
	name := h.codec.Name()
	if len(name) == 0 || len(name) > 255 {
		return fmt.Errorf("catalogio: invalid codec name %q", name)
	}
	buf.WriteString(magic)
	buf.WriteByte(version)
	buf.WriteByte(byte(h.compression))
	buf.Write(binary.LittleEndian.AppendUint32(nil, h.checksum))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	return nil
}

func parseHeader(data []byte) (header, []byte, error) {
	const fixed = len(magic) + 7
	if len(data) < fixed || string(data[:len(magic)]) != magic {
		return header{}, nil, errors.New("missing magic")
	}
	if v := data[len(magic)]; v != version {
		return header{}, nil, fmt.Errorf("unsupported version %d", v)
	}

	var h header
	h.compression = Compression(data[len(magic)+1])
	if h.compression > CompressionZSTD {
		return header{}, nil, fmt.Errorf("unknown compression %d", uint8(h.compression))
	}
	h.checksum = binary.LittleEndian.Uint32(data[len(magic)+2:])

	n := int(data[fixed-1])
	if len(data) < fixed+n {
		return header{}, nil, errors.New("truncated codec name")
	}
	name := string(data[fixed : fixed+n])
	c, ok := codec.ByName(name)
	if !ok {
		return header{}, nil, fmt.Errorf("unknown codec %q", name)
	}
	h.codec = c
	return h, data[fixed+n:], nil
}
