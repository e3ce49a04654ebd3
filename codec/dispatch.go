package codec

import (
	"fmt"
	"sync"
	"time"

	"encoding/binary"
	"math"

	"github.com/google/uuid"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/geomort/geomort/endian"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/internal/pool"
	"github.com/geomort/geomort/schema"
)

// writeFunc appends one attribute (sentinel plus payload) to the buffer.
type writeFunc func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error

// readFunc consumes one attribute and materializes its value (nil when the
// sentinel marks it null).
type readFunc func(r *byteReader, engine endian.EndianEngine) (any, error)

// skipFunc consumes one attribute without materializing it. Every kind,
// including variable-length ones, supports skip mode; projected decode
// depends on it.
type skipFunc func(r *byteReader, engine endian.EndianEngine) error

// dispatch is the per-schema table of attribute codecs plus offset scratch.
// Tables are immutable after build and shared across goroutines.
type dispatch struct {
	writers  []writeFunc
	readers  []readFunc
	skippers []skipFunc
	n        int
}

// borrowOffsets returns a pooled offset array sized for this schema. The
// cleanup function returns it to the pool.
func (d *dispatch) borrowOffsets() ([]uint32, func()) {
	return pool.GetUint32Slice(d.n)
}

// Registry caches dispatch tables by schema fingerprint.
//
// Lookups for different schemas never serialize against each other and a
// rebuild for one schema does not block readers of another: the underlying
// sync.Map permits independent get/compute per key. Entries may be evicted
// at any time (memory pressure, administrative reset); a miss transparently
// rebuilds and is never a hard failure for supported schemas.
type Registry struct {
	tables sync.Map // uint64 fingerprint -> *dispatch
}

// NewRegistry creates an empty registry. Most callers share
// DefaultRegistry; tests inject their own to run without global state.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide shared registry.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Invalidate evicts the dispatch table for one schema fingerprint.
func (r *Registry) Invalidate(fingerprint uint64) {
	r.tables.Delete(fingerprint)
}

// Reset evicts all cached dispatch tables.
func (r *Registry) Reset() {
	r.tables.Range(func(key, _ any) bool {
		r.tables.Delete(key)
		return true
	})
}

// lookup returns the dispatch table for a schema, building and caching it
// on miss. Returns ErrUnsupportedAttributeType if the schema declares a
// kind without a registered writer/reader.
func (r *Registry) lookup(s *schema.Schema) (*dispatch, error) {
	if cached, ok := r.tables.Load(s.Fingerprint()); ok {
		return cached.(*dispatch), nil
	}

	built, err := buildDispatch(s)
	if err != nil {
		return nil, err
	}

	// Concurrent builders may race here; first store wins and duplicates
	// are discarded, which is cheaper than locking every lookup.
	actual, _ := r.tables.LoadOrStore(s.Fingerprint(), built)

	return actual.(*dispatch), nil
}

func buildDispatch(s *schema.Schema) (*dispatch, error) {
	d := &dispatch{
		writers:  make([]writeFunc, s.Len()),
		readers:  make([]readFunc, s.Len()),
		skippers: make([]skipFunc, s.Len()),
		n:        s.Len(),
	}

	for i := 0; i < s.Len(); i++ {
		attr := s.Attribute(i)
		if !attr.Kind.Supported() {
			return nil, fmt.Errorf("%w: attribute %q has kind %s",
				errs.ErrUnsupportedAttributeType, attr.Name, attr.Kind)
		}
		d.writers[i] = makeWriter(attr)
		d.readers[i] = makeReader(attr)
		d.skippers[i] = makeSkipper(attr)
	}

	return d, nil
}

// writeSentinel handles the shared null path. It returns done=true when the
// value was null and nothing further must be written.
func writeSentinel(buf *pool.ByteBuffer, attr schema.Attribute, v any) (done bool, err error) {
	if v == nil {
		if !attr.Nullable {
			return false, fmt.Errorf("%w: null value for non-nullable attribute %q",
				errs.ErrInvalidArgument, attr.Name)
		}
		buf.MustWrite([]byte{sentinelNull})

		return true, nil
	}
	buf.MustWrite([]byte{sentinelPresent})

	return false, nil
}

func makeWriter(attr schema.Attribute) writeFunc {
	switch attr.Kind {
	case format.KindBool:
		return func(buf *pool.ByteBuffer, _ endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			b, ok := v.(bool)
			if !ok {
				return typeMismatch(attr, "bool", v)
			}
			if b {
				buf.MustWrite([]byte{1})
			} else {
				buf.MustWrite([]byte{0})
			}

			return nil
		}
	case format.KindInt:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			iv, err := toInt32(attr, v)
			if err != nil {
				return err
			}
			buf.B = engine.AppendUint32(buf.B, uint32(iv))

			return nil
		}
	case format.KindLong:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			lv, err := toInt64(attr, v)
			if err != nil {
				return err
			}
			buf.B = engine.AppendUint64(buf.B, uint64(lv))

			return nil
		}
	case format.KindFloat:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			f, ok := v.(float32)
			if !ok {
				return typeMismatch(attr, "float32", v)
			}
			buf.B = engine.AppendUint32(buf.B, math.Float32bits(f))

			return nil
		}
	case format.KindDouble:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			f, ok := v.(float64)
			if !ok {
				return typeMismatch(attr, "float64", v)
			}
			buf.B = engine.AppendUint64(buf.B, math.Float64bits(f))

			return nil
		}
	case format.KindDate:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			t, ok := v.(time.Time)
			if !ok {
				return typeMismatch(attr, "time.Time", v)
			}
			buf.B = engine.AppendUint64(buf.B, uint64(t.UnixMilli()))

			return nil
		}
	case format.KindUUID:
		return func(buf *pool.ByteBuffer, _ endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			u, ok := v.(uuid.UUID)
			if !ok {
				return typeMismatch(attr, "uuid.UUID", v)
			}
			buf.MustWrite(u[:])

			return nil
		}
	case format.KindString:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			str, ok := v.(string)
			if !ok {
				return typeMismatch(attr, "string", v)
			}
			if len(str) > maxStringLength {
				return fmt.Errorf("%w: attribute %q string length %d exceeds %d",
					errs.ErrInvalidArgument, attr.Name, len(str), maxStringLength)
			}
			buf.B = engine.AppendUint16(buf.B, uint16(len(str)))
			buf.MustWrite([]byte(str))

			return nil
		}
	case format.KindGeometry:
		return func(buf *pool.ByteBuffer, engine endian.EndianEngine, v any) error {
			done, err := writeSentinel(buf, attr, v)
			if done || err != nil {
				return err
			}
			g, ok := v.(geom.T)
			if !ok {
				return typeMismatch(attr, "geom.T", v)
			}
			// WKB carries its own byte-order marker; fixing NDR here keeps
			// payloads identical across engine configurations.
			encoded, err := wkb.Marshal(g, binary.LittleEndian)
			if err != nil {
				return fmt.Errorf("attribute %q: wkb encode: %w", attr.Name, err)
			}
			buf.B = engine.AppendUint32(buf.B, uint32(len(encoded)))
			buf.MustWrite(encoded)

			return nil
		}
	default:
		// Unreachable: buildDispatch rejects unsupported kinds.
		return func(*pool.ByteBuffer, endian.EndianEngine, any) error {
			return fmt.Errorf("%w: kind %s", errs.ErrUnsupportedAttributeType, attr.Kind)
		}
	}
}

func makeReader(attr schema.Attribute) readFunc {
	switch attr.Kind {
	case format.KindBool:
		return func(r *byteReader, _ endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(1)
			if err != nil {
				return nil, err
			}

			return b[0] != 0, nil
		}
	case format.KindInt:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(4)
			if err != nil {
				return nil, err
			}

			return int32(engine.Uint32(b)), nil
		}
	case format.KindLong:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(8)
			if err != nil {
				return nil, err
			}

			return int64(engine.Uint64(b)), nil
		}
	case format.KindFloat:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(4)
			if err != nil {
				return nil, err
			}

			return math.Float32frombits(engine.Uint32(b)), nil
		}
	case format.KindDouble:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(8)
			if err != nil {
				return nil, err
			}

			return math.Float64frombits(engine.Uint64(b)), nil
		}
	case format.KindDate:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(8)
			if err != nil {
				return nil, err
			}

			return time.UnixMilli(int64(engine.Uint64(b))).UTC(), nil
		}
	case format.KindUUID:
		return func(r *byteReader, _ endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			b, err := r.take(16)
			if err != nil {
				return nil, err
			}
			var u uuid.UUID
			copy(u[:], b)

			return u, nil
		}
	case format.KindString:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			lb, err := r.take(2)
			if err != nil {
				return nil, err
			}
			b, err := r.take(int(engine.Uint16(lb)))
			if err != nil {
				return nil, err
			}

			return string(b), nil
		}
	case format.KindGeometry:
		return func(r *byteReader, engine endian.EndianEngine) (any, error) {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return nil, err
			}
			lb, err := r.take(4)
			if err != nil {
				return nil, err
			}
			b, err := r.take(int(engine.Uint32(lb)))
			if err != nil {
				return nil, err
			}
			g, err := wkb.Unmarshal(b)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: wkb decode: %w", attr.Name, err)
			}

			return g, nil
		}
	default:
		return func(*byteReader, endian.EndianEngine) (any, error) {
			return nil, fmt.Errorf("%w: kind %s", errs.ErrUnsupportedAttributeType, attr.Kind)
		}
	}
}

// makeSkipper consumes exactly the bytes the matching reader would, without
// materializing the value. A null attribute always skips exactly the
// 1-byte sentinel.
func makeSkipper(attr schema.Attribute) skipFunc {
	if size := attr.Kind.FixedSize(); size >= 0 {
		return func(r *byteReader, _ endian.EndianEngine) error {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return err
			}

			return r.skip(size)
		}
	}

	switch attr.Kind {
	case format.KindString:
		return func(r *byteReader, engine endian.EndianEngine) error {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return err
			}
			lb, err := r.take(2)
			if err != nil {
				return err
			}

			return r.skip(int(engine.Uint16(lb)))
		}
	case format.KindGeometry:
		return func(r *byteReader, engine endian.EndianEngine) error {
			present, err := r.sentinel(attr)
			if !present || err != nil {
				return err
			}
			lb, err := r.take(4)
			if err != nil {
				return err
			}

			return r.skip(int(engine.Uint32(lb)))
		}
	default:
		return func(*byteReader, endian.EndianEngine) error {
			return fmt.Errorf("%w: kind %s", errs.ErrUnsupportedAttributeType, attr.Kind)
		}
	}
}

func typeMismatch(attr schema.Attribute, want string, v any) error {
	return fmt.Errorf("%w: attribute %q expects %s, got %T",
		errs.ErrInvalidArgument, attr.Name, want, v)
}

func toInt32(attr schema.Attribute, v any) (int32, error) {
	switch n := v.(type) {
	case int32:
		return n, nil
	case int:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: attribute %q value %d overflows int32",
				errs.ErrInvalidArgument, attr.Name, n)
		}

		return int32(n), nil
	default:
		return 0, typeMismatch(attr, "int32", v)
	}
}

func toInt64(attr schema.Attribute, v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, typeMismatch(attr, "int64", v)
	}
}
