package plan

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/geomort/geomort/errs"
)

func TestEncodeDecodeKey(t *testing.T) {
	cases := []struct {
		week int32
		z    uint64
	}{
		{0, 0},
		{574, 0x1234567890ABCD},
		{-1, 42},
		{weekMin, 0},
		{weekMax, 1<<63 - 1},
	}
	for _, tc := range cases {
		key, err := EncodeKey(nil, tc.week, tc.z)
		require.NoError(t, err)
		require.Len(t, key, KeyLength)

		week, z, err := DecodeKey(key)
		require.NoError(t, err)
		require.Equal(t, tc.week, week)
		require.Equal(t, tc.z, z)
	}
}

func TestEncodeKeyAppends(t *testing.T) {
	prefix := []byte{0xDE, 0xAD}
	key, err := EncodeKey(prefix, 574, 7)
	require.NoError(t, err)
	require.Len(t, key, 2+KeyLength)
	require.Equal(t, prefix, key[:2])
}

func TestEncodeKeyWeekRange(t *testing.T) {
	_, err := EncodeKey(nil, weekMax+1, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
	_, err = EncodeKey(nil, weekMin-1, 0)
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestDecodeKeyLength(t *testing.T) {
	_, _, err := DecodeKey([]byte{1, 2, 3})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestKeyOrdering(t *testing.T) {
	// Byte order must equal (week, z) order, negative weeks included.
	k := func(week int32, z uint64) []byte {
		key, err := EncodeKey(nil, week, z)
		require.NoError(t, err)
		return key
	}

	ordered := [][]byte{
		k(-10, 1<<63-1),
		k(-1, 0),
		k(0, 0),
		k(0, 1),
		k(573, 1<<63-1),
		k(574, 0),
		k(574, 1),
	}
	for i := 1; i < len(ordered); i++ {
		require.Negative(t, bytes.Compare(ordered[i-1], ordered[i]),
			"key %d must sort before key %d", i-1, i)
	}
}
