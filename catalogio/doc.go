// Package catalogio reads and writes catalogs stored in a blobstore.BlobStore.
//
// A stored catalog is a small header followed by a stream of blocks:
//
//	[magic "XMCT"][version u8][compression u8][crc32c u32][codec len u8][codec name]
//	[uncompressed u32][compressed u32][data]...
//
// A compressed size of zero marks a block stored raw. The block payloads
// concatenate to the codec-encoded envelope {"kind": ..., "rows": [...]},
// whose CRC32-C is stored in the header.
//
// Compression is picked from the blob name on write: names ending in ".zst"
// use zstd, ".lz4" use LZ4, anything else is stored uncompressed. Reads trust
// the header, but a header that contradicts the suffix is rejected as
// ErrBadHeader.
package catalogio
