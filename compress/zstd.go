package compress

// ZstdCompressor provides Zstandard compression for metadata blocks where
// ratio matters more than speed, such as records carrying provenance or
// audit payloads.
//
// Two implementations exist behind build tags:
//   - gozstd: cgo bindings (valyala/gozstd), fastest
//   - default: pure Go (klauspost/compress/zstd), portable
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
