package codec

import (
	"fmt"
	"sort"

	"github.com/geomort/geomort/compress"
	"github.com/geomort/geomort/endian"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/internal/pool"
)

// The metadata block trails the offset table when enabled:
//
//	uint16 pair count, then per pair uint16 key length + key bytes and
//	uint16 value length + value bytes, the whole block run through the
//	configured compression codec.
//
// Keys are written in sorted order so identical maps encode identically.

const maxMetadataPairs = 1<<16 - 1

func appendMetadata(buf *pool.ByteBuffer, engine endian.EndianEngine, codec compress.Codec, meta map[string]string) error {
	if len(meta) > maxMetadataPairs {
		return fmt.Errorf("%w: %d metadata pairs exceed %d",
			errs.ErrInvalidArgument, len(meta), maxMetadataPairs)
	}

	block := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(block)

	block.B = engine.AppendUint16(block.B, uint16(len(meta)))

	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := meta[k]
		if len(k) > maxStringLength || len(v) > maxStringLength {
			return fmt.Errorf("%w: metadata pair %q too long", errs.ErrInvalidArgument, k)
		}
		block.B = engine.AppendUint16(block.B, uint16(len(k)))
		block.MustWrite([]byte(k))
		block.B = engine.AppendUint16(block.B, uint16(len(v)))
		block.MustWrite([]byte(v))
	}

	compressed, err := codec.Compress(block.Bytes())
	if err != nil {
		return fmt.Errorf("metadata block: %w", err)
	}
	buf.MustWrite(compressed)

	return nil
}

func decodeMetadata(raw []byte, engine endian.EndianEngine, codec compress.Codec) (map[string]string, error) {
	block, err := codec.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("metadata block: %w", err)
	}

	r := &byteReader{data: block}
	cb, err := r.take(2)
	if err != nil {
		return nil, err
	}
	count := int(engine.Uint16(cb))

	meta := make(map[string]string, count)
	for i := 0; i < count; i++ {
		kb, err := r.take(2)
		if err != nil {
			return nil, err
		}
		k, err := r.take(int(engine.Uint16(kb)))
		if err != nil {
			return nil, err
		}
		vb, err := r.take(2)
		if err != nil {
			return nil, err
		}
		v, err := r.take(int(engine.Uint16(vb)))
		if err != nil {
			return nil, err
		}
		meta[string(k)] = string(v)
	}

	return meta, nil
}
