package pool

import "sync"

// Slice pools for efficient reuse of typed slices.
// These pools back the dispatch-table offset scratch and decoded value
// arrays, keeping steady-state decode paths allocation-free.
var (
	uint32SlicePool = sync.Pool{
		New: func() any { return &[]uint32{} },
	}
	anySlicePool = sync.Pool{
		New: func() any { return &[]any{} },
	}
)

// GetUint32Slice retrieves and resizes a uint32 slice from the pool.
//
// The returned slice has length equal to size. If the pooled slice has
// insufficient capacity a new one is allocated. The caller must call the
// returned cleanup function (typically with defer) to return the slice to
// the pool.
func GetUint32Slice(size int) ([]uint32, func()) {
	ptr, _ := uint32SlicePool.Get().(*[]uint32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]uint32, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { uint32SlicePool.Put(ptr) }
}

// GetAnySlice retrieves and resizes an []any from the pool.
//
// Used for decoded attribute value arrays. Same contract as GetUint32Slice.
func GetAnySlice(size int) ([]any, func()) {
	ptr, _ := anySlicePool.Get().(*[]any)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]any, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() {
		// Clear interface elements so pooled slices never pin values.
		s := *ptr
		for i := range s {
			s[i] = nil
		}
		anySlicePool.Put(ptr)
	}
}
