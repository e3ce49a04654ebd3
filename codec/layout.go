// Package codec implements the versioned binary record format for typed
// feature records.
//
// Record layout:
//
//	[0]      format version
//	[1:5]    offset-table start position (backpatched after the payloads)
//	[5:..]   uint16 id length + id bytes (UTF-8)
//	...      N attribute payloads in schema order, each prefixed with a
//	         1-byte null sentinel (0 = null, 1 = present)
//	...      offset table: N uint32 payload start positions, schema order
//	[tail]   optional metadata block; presence and compression are
//	         serialization options, not recorded in the format
//
// The offset table makes three decode modes possible: full sequential
// decode, lazy random access by attribute index, and schema-projected
// decode that skips unwanted payloads without materializing them.
//
// Multi-byte integers use the encoder's configured EndianEngine
// (little-endian by default); the decoder must be configured to match.
package codec

const (
	// Version is the current record format version.
	Version = 1

	// maxVersion bounds recognized version bytes. The three high bits of
	// the version byte are reserved for future format flags.
	maxVersion = 7

	// versionOffset and offsetTableOffset locate the fixed header fields.
	versionOffset     = 0
	offsetTableOffset = 1

	// headerSize is the fixed prefix before the id: version byte plus the
	// 4-byte offset-table pointer.
	headerSize = 5

	// minRecordSize is the smallest decodable record: header plus an empty
	// id length prefix.
	minRecordSize = headerSize + 2

	// maxIDLength and maxStringLength bound uint16 length prefixes.
	maxIDLength     = 1<<16 - 1
	maxStringLength = 1<<16 - 1

	// Null sentinel values preceding every attribute payload.
	sentinelNull    = 0
	sentinelPresent = 1
)
