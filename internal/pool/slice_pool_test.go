package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetUint32Slice(t *testing.T) {
	t.Run("returns slice with correct size", func(t *testing.T) {
		slice, cleanup := GetUint32Slice(100)
		defer cleanup()

		require.Equal(t, 100, len(slice))
		require.GreaterOrEqual(t, cap(slice), 100)
	})

	t.Run("reuses pooled slice when capacity sufficient", func(t *testing.T) {
		slice1, cleanup1 := GetUint32Slice(50)
		ptr1 := &slice1[0]
		cleanup1()

		slice2, cleanup2 := GetUint32Slice(50)
		defer cleanup2()
		ptr2 := &slice2[0]

		require.Equal(t, ptr1, ptr2, "should reuse same underlying array")
	})

	t.Run("zero size yields empty slice", func(t *testing.T) {
		slice, cleanup := GetUint32Slice(0)
		defer cleanup()

		require.Equal(t, 0, len(slice))
	})
}

func TestGetAnySlice(t *testing.T) {
	t.Run("returns slice with correct size", func(t *testing.T) {
		slice, cleanup := GetAnySlice(16)
		defer cleanup()

		require.Equal(t, 16, len(slice))
	})

	t.Run("clears elements on release", func(t *testing.T) {
		slice1, cleanup1 := GetAnySlice(10)
		for i := range slice1 {
			slice1[i] = i
		}
		cleanup1()

		slice2, cleanup2 := GetAnySlice(10)
		defer cleanup2()

		for i, v := range slice2 {
			require.Nil(t, v, "element %d should be cleared on release", i)
		}
	})
}

func BenchmarkGetUint32Slice(b *testing.B) {
	for i := 0; i < b.N; i++ {
		slice, cleanup := GetUint32Slice(64)
		slice[0] = 1
		cleanup()
	}
}
