// Package compress provides compression codecs for the optional record
// metadata block.
//
// The record format itself is uncompressed so that lazy decode can seek by
// offset, but the trailing metadata block is opaque to the offset table and
// may be compressed. The codec used is a serialization option chosen by the
// caller; it is not written into the record, so encoder and decoder must be
// configured with the same compression type.
//
// Supported algorithms:
//   - None: pass-through (default)
//   - Zstd: best ratio; cgo implementation behind the gozstd build tag,
//     pure-Go implementation otherwise
//   - S2: balanced ratio and speed
//   - LZ4: fastest decompression
//
// All codecs are stateless values safe for concurrent use; implementations
// that benefit from reusable state (lz4 compressor, zstd coders) draw that
// state from internal sync.Pools.
package compress
