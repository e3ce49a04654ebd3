package codec

import (
	"fmt"

	"github.com/geomort/geomort/compress"
	"github.com/geomort/geomort/endian"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/internal/options"
	"github.com/geomort/geomort/internal/pool"
	"github.com/geomort/geomort/schema"
)

// Encoder serializes records of one schema into the versioned binary
// format.
//
// An encoder is single-goroutine: it owns a pooled scratch buffer reused
// across Encode calls and cleared, not reallocated, between records. The
// slice returned by Encode aliases that buffer and is valid only until the
// next Encode on the same encoder; callers retaining a record must copy it
// out or use EncodeAppend.
type Encoder struct {
	schema   *schema.Schema
	engine   endian.EndianEngine
	registry *Registry
	disp     *dispatch
	buf      *pool.ByteBuffer

	metadataEnabled bool
	metaCodec       compress.Codec
}

// EncoderOption configures an Encoder.
type EncoderOption = options.Option[*Encoder]

// WithEncoderEndian sets the payload byte order. Little-endian is the
// default; the decoder must be configured identically.
func WithEncoderEndian(engine endian.EndianEngine) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.engine = engine
	})
}

// WithEncoderRegistry injects a dispatch-table registry, replacing the
// process-wide default. Mainly for tests and hosts managing cache lifetime
// themselves.
func WithEncoderRegistry(r *Registry) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.registry = r
	})
}

// WithMetadata enables the trailing metadata block. The block's presence is
// not recorded in the format: decoders must be configured with the same
// option to read records written with it.
func WithMetadata(enabled bool) EncoderOption {
	return options.NoError(func(e *Encoder) {
		e.metadataEnabled = enabled
	})
}

// WithMetadataCompression selects the codec for the metadata block and
// implies WithMetadata(true). CompressionNone is the default.
func WithMetadataCompression(ct format.CompressionType) EncoderOption {
	return options.New(func(e *Encoder) error {
		codec, err := compress.CreateCodec(ct, "metadata")
		if err != nil {
			return err
		}
		e.metadataEnabled = true
		e.metaCodec = codec

		return nil
	})
}

// NewEncoder creates an encoder for the given schema.
//
// Fails with ErrUnsupportedAttributeType if the schema declares a kind
// without a registered writer (List, Map), so malformed schemas are caught
// before any record is partially written.
func NewEncoder(s *schema.Schema, opts ...EncoderOption) (*Encoder, error) {
	e := &Encoder{
		schema:    s,
		engine:    endian.GetLittleEndianEngine(),
		registry:  DefaultRegistry(),
		metaCodec: compress.NewNoOpCompressor(),
	}
	if err := options.Apply(e, opts...); err != nil {
		return nil, err
	}

	disp, err := e.registry.lookup(s)
	if err != nil {
		return nil, err
	}
	e.disp = disp
	e.buf = pool.GetRecordBuffer()

	return e, nil
}

// Encode serializes one record. The returned slice aliases the encoder's
// scratch buffer and is valid only until the next Encode call.
func (e *Encoder) Encode(rec *Record) ([]byte, error) {
	e.buf.Reset()

	return e.encode(e.buf, rec)
}

// EncodeAppend serializes one record appended to dst and returns the
// extended slice. Unlike Encode, the result does not alias encoder state.
func (e *Encoder) EncodeAppend(dst []byte, rec *Record) ([]byte, error) {
	scratch := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(scratch)

	out, err := e.encode(scratch, rec)
	if err != nil {
		return dst, err
	}

	return append(dst, out...), nil
}

func (e *Encoder) encode(buf *pool.ByteBuffer, rec *Record) ([]byte, error) {
	if len(rec.Values) != e.schema.Len() {
		return nil, fmt.Errorf("%w: record has %d values, schema %q has %d attributes",
			errs.ErrInvalidArgument, len(rec.Values), e.schema.Name(), e.schema.Len())
	}
	if len(rec.ID) > maxIDLength {
		return nil, fmt.Errorf("%w: id length %d exceeds %d",
			errs.ErrInvalidArgument, len(rec.ID), maxIDLength)
	}

	// Header: version byte plus a reserved offset-table pointer,
	// backpatched once the payload section is complete.
	buf.MustWrite([]byte{Version})
	buf.B = e.engine.AppendUint32(buf.B, 0)

	buf.B = e.engine.AppendUint16(buf.B, uint16(len(rec.ID)))
	buf.MustWrite([]byte(rec.ID))

	offsets, release := e.disp.borrowOffsets()
	defer release()

	for i, write := range e.disp.writers {
		offsets[i] = uint32(buf.Len())
		if err := write(buf, e.engine, rec.Values[i]); err != nil {
			return nil, err
		}
	}

	tableStart := buf.Len()
	for _, off := range offsets {
		buf.B = e.engine.AppendUint32(buf.B, off)
	}

	// Backpatch the reserved pointer now that the table position is known.
	e.engine.PutUint32(buf.Slice(offsetTableOffset, offsetTableOffset+4), uint32(tableStart))

	if e.metadataEnabled {
		if err := appendMetadata(buf, e.engine, e.metaCodec, rec.Metadata); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Close releases the encoder's scratch buffer back to the pool. The
// encoder must not be used afterwards.
func (e *Encoder) Close() {
	if e.buf != nil {
		pool.PutRecordBuffer(e.buf)
		e.buf = nil
	}
}
