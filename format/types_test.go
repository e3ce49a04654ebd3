package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindSupported(t *testing.T) {
	supported := []Kind{
		KindString, KindInt, KindLong, KindFloat, KindDouble,
		KindBool, KindDate, KindUUID, KindGeometry,
	}
	for _, k := range supported {
		require.True(t, k.Supported(), "kind %s", k)
	}

	require.False(t, KindList.Supported())
	require.False(t, KindMap.Supported())
	require.False(t, Kind(0).Supported())
	require.False(t, Kind(0xFF).Supported())
}

func TestKindFixedSize(t *testing.T) {
	require.Equal(t, 1, KindBool.FixedSize())
	require.Equal(t, 4, KindInt.FixedSize())
	require.Equal(t, 4, KindFloat.FixedSize())
	require.Equal(t, 8, KindLong.FixedSize())
	require.Equal(t, 8, KindDouble.FixedSize())
	require.Equal(t, 8, KindDate.FixedSize())
	require.Equal(t, 16, KindUUID.FixedSize())

	require.Equal(t, -1, KindString.FixedSize())
	require.Equal(t, -1, KindGeometry.FixedSize())
	require.Equal(t, -1, KindList.FixedSize())
}

func TestStrings(t *testing.T) {
	require.Equal(t, "Geometry", KindGeometry.String())
	require.Equal(t, "Unknown", Kind(0xFF).String())
	require.Equal(t, "Zstd", CompressionZstd.String())
	require.Equal(t, "Unknown", CompressionType(0xFF).String())
}
