package plan

import (
	"fmt"

	"github.com/geomort/geomort/endian"
	"github.com/geomort/geomort/errs"
)

// Scan keys are always big-endian so that byte-wise key order equals
// (week, curve value) order regardless of the payload byte order:
//
//	[0:2]  week index, biased by weekBias so signed weeks sort correctly
//	[2:10] 63-bit Z3 curve value
const (
	// KeyLength is the fixed length of every scan key in bytes.
	KeyLength = 10

	weekBias = 0x8000
	weekMin  = -weekBias
	weekMax  = weekBias - 1
)

// EncodeKey appends the scan key for (week, z) to dst and returns the
// extended slice.
func EncodeKey(dst []byte, week int32, z uint64) ([]byte, error) {
	if week < weekMin || week > weekMax {
		return dst, fmt.Errorf("%w: week %d outside encodable range [%d, %d]",
			errs.ErrInvalidArgument, week, weekMin, weekMax)
	}

	engine := endian.GetBigEndianEngine()
	dst = engine.AppendUint16(dst, uint16(int32(weekBias)+week))
	dst = engine.AppendUint64(dst, z)

	return dst, nil
}

// DecodeKey recovers the week index and curve value of a scan key.
func DecodeKey(key []byte) (week int32, z uint64, err error) {
	if len(key) != KeyLength {
		return 0, 0, fmt.Errorf("%w: scan key of %d bytes, want %d",
			errs.ErrInvalidArgument, len(key), KeyLength)
	}

	engine := endian.GetBigEndianEngine()
	week = int32(engine.Uint16(key[0:2])) - weekBias
	z = engine.Uint64(key[2:10])

	return week, z, nil
}
