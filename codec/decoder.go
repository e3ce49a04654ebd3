package codec

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/geomort/geomort/compress"
	"github.com/geomort/geomort/endian"
	"github.com/geomort/geomort/errs"
	"github.com/geomort/geomort/format"
	"github.com/geomort/geomort/internal/options"
	"github.com/geomort/geomort/schema"
)

// Decoder deserializes records of one schema.
//
// Three access modes are supported: Decode materializes every attribute,
// Load yields a lazy cursor resolving attributes on demand, and a decoder
// built with WithProjection materializes only the projected attributes,
// consuming the rest through skip-capable readers.
//
// A decoder is single-goroutine. Its cursor and scratch state are reused
// across calls; values vended by the cursor are valid only until the next
// Load.
type Decoder struct {
	schema   *schema.Schema
	target   *schema.Schema // equals schema unless projected
	wanted   []bool         // per source attribute, indexed by position
	engine   endian.EndianEngine
	registry *Registry
	disp     *dispatch
	logger   log.Logger

	metadataEnabled bool
	metaCodec       compress.Codec

	cursor Cursor
}

// DecoderOption configures a Decoder.
type DecoderOption = options.Option[*Decoder]

// WithDecoderEndian sets the payload byte order; it must match the
// encoder's configuration.
func WithDecoderEndian(engine endian.EndianEngine) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.engine = engine
	})
}

// WithDecoderRegistry injects a dispatch-table registry, replacing the
// process-wide default.
func WithDecoderRegistry(r *Registry) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.registry = r
	})
}

// WithDecoderLogger injects a logger for recoverable diagnostics. The
// default discards everything.
func WithDecoderLogger(logger log.Logger) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.logger = logger
	})
}

// WithProjection restricts decoding to the named attributes. Decoded
// records are bound to the projected sub-schema; payloads of the remaining
// attributes are skipped, never materialized.
func WithProjection(names ...string) DecoderOption {
	return options.New(func(d *Decoder) error {
		target, err := d.schema.Project(names)
		if err != nil {
			return err
		}
		d.target = target

		return nil
	})
}

// WithDecodedMetadata enables parsing of the trailing metadata block. Must
// mirror the encoder's WithMetadata setting: presence is not
// self-describing.
func WithDecodedMetadata(enabled bool) DecoderOption {
	return options.NoError(func(d *Decoder) {
		d.metadataEnabled = enabled
	})
}

// WithDecodedMetadataCompression selects the metadata codec and implies
// WithDecodedMetadata(true).
func WithDecodedMetadataCompression(ct format.CompressionType) DecoderOption {
	return options.New(func(d *Decoder) error {
		codec, err := compress.CreateCodec(ct, "metadata")
		if err != nil {
			return err
		}
		d.metadataEnabled = true
		d.metaCodec = codec

		return nil
	})
}

// NewDecoder creates a decoder for records written against the given
// schema.
func NewDecoder(s *schema.Schema, opts ...DecoderOption) (*Decoder, error) {
	d := &Decoder{
		schema:    s,
		target:    s,
		engine:    endian.GetLittleEndianEngine(),
		registry:  DefaultRegistry(),
		logger:    log.NewNopLogger(),
		metaCodec: compress.NewNoOpCompressor(),
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}

	disp, err := d.registry.lookup(s)
	if err != nil {
		return nil, err
	}
	d.disp = disp

	d.wanted = make([]bool, s.Len())
	for i := 0; i < s.Len(); i++ {
		_, ok := d.target.Index(s.Attribute(i).Name)
		d.wanted[i] = ok
	}

	return d, nil
}

// recordHeader is the parsed fixed prefix of a record buffer.
type recordHeader struct {
	id         string
	bodyStart  int
	tableStart int
}

func parseHeader(data []byte, engine endian.EndianEngine, attrCount int) (recordHeader, error) {
	if len(data) < minRecordSize {
		return recordHeader{}, fmt.Errorf("%w: %d bytes", errs.ErrRecordTooShort, len(data))
	}

	version := data[versionOffset]
	if version != Version {
		return recordHeader{}, fmt.Errorf("%w: version byte %d (supported: %d, max %d)",
			errs.ErrFormatVersionMismatch, version, Version, maxVersion)
	}

	tableStart := int(engine.Uint32(data[offsetTableOffset : offsetTableOffset+4]))
	if tableStart < minRecordSize || tableStart+4*attrCount > len(data) {
		return recordHeader{}, fmt.Errorf("%w: offset table at %d with %d entries in record of %d bytes",
			errs.ErrOffsetOutOfRange, tableStart, attrCount, len(data))
	}

	idLen := int(engine.Uint16(data[headerSize : headerSize+2]))
	bodyStart := headerSize + 2 + idLen
	if bodyStart > tableStart {
		return recordHeader{}, fmt.Errorf("%w: id of %d bytes overruns offset table at %d",
			errs.ErrRecordTooShort, idLen, tableStart)
	}

	return recordHeader{
		id:         string(data[headerSize+2 : bodyStart]),
		bodyStart:  bodyStart,
		tableStart: tableStart,
	}, nil
}

// Decode materializes a record into a fresh allocation.
func (d *Decoder) Decode(data []byte) (*Record, error) {
	return d.DecodeInto(data, nil)
}

// DecodeInto materializes a record, reusing the caller-supplied record when
// possible.
//
// A reuse record bound to a different schema is a recoverable mistake: the
// decoder logs a diagnostic and falls back to a fresh allocation rather
// than failing the scan.
func (d *Decoder) DecodeInto(data []byte, reuse *Record) (*Record, error) {
	hdr, err := parseHeader(data, d.engine, d.disp.n)
	if err != nil {
		return nil, err
	}

	rec := d.claimReusable(reuse)
	rec.ID = hdr.id

	r := &byteReader{data: data, pos: hdr.bodyStart}
	out := 0
	for i := 0; i < d.disp.n; i++ {
		if !d.wanted[i] {
			if err := d.disp.skippers[i](r, d.engine); err != nil {
				return nil, err
			}

			continue
		}
		v, err := d.disp.readers[i](r, d.engine)
		if err != nil {
			return nil, err
		}
		rec.Values[out] = v
		out++
	}

	if d.metadataEnabled {
		meta, err := decodeMetadata(data[hdr.tableStart+4*d.disp.n:], d.engine, d.metaCodec)
		if err != nil {
			return nil, err
		}
		rec.Metadata = meta
	}

	return rec, nil
}

// claimReusable vets a caller-supplied reuse record, falling back to a
// fresh allocation with a diagnostic on mismatch.
func (d *Decoder) claimReusable(reuse *Record) *Record {
	if reuse == nil {
		return NewRecord(d.target)
	}
	if reuse.schema == nil || reuse.schema.Fingerprint() != d.target.Fingerprint() {
		_ = level.Warn(d.logger).Log(
			"msg", "reusable record mismatch, allocating fresh",
			"err", errs.ErrReusableRecordMismatch,
			"want", d.target.String(),
		)

		return NewRecord(d.target)
	}
	reuse.reset()

	return reuse
}

// Offsets parses the record's offset table into dst, growing it as needed,
// and returns it. The table always has exactly one entry per schema
// attribute: the byte position where that attribute's payload (its null
// sentinel) begins.
func (d *Decoder) Offsets(data []byte, dst []uint32) ([]uint32, error) {
	hdr, err := parseHeader(data, d.engine, d.disp.n)
	if err != nil {
		return nil, err
	}

	if cap(dst) < d.disp.n {
		dst = make([]uint32, d.disp.n)
	}
	dst = dst[:d.disp.n]

	for i := 0; i < d.disp.n; i++ {
		off := d.engine.Uint32(data[hdr.tableStart+4*i : hdr.tableStart+4*i+4])
		if int(off) < hdr.bodyStart || int(off) >= hdr.tableStart {
			return nil, fmt.Errorf("%w: attribute %d offset %d outside payload section [%d, %d)",
				errs.ErrOffsetOutOfRange, i, off, hdr.bodyStart, hdr.tableStart)
		}
		dst[i] = off
	}

	return dst, nil
}

// VerifyOffsets checks the structural invariant that offsetTable[i] equals
// the byte position where attribute i's payload begins, by walking the
// payload section with skip-capable readers. Used by tests and store
// repair tooling.
func (d *Decoder) VerifyOffsets(data []byte) error {
	offsets, err := d.Offsets(data, nil)
	if err != nil {
		return err
	}

	hdr, err := parseHeader(data, d.engine, d.disp.n)
	if err != nil {
		return err
	}

	r := &byteReader{data: data, pos: hdr.bodyStart}
	for i, skip := range d.disp.skippers {
		if uint32(r.pos) != offsets[i] {
			return fmt.Errorf("%w: attribute %d starts at %d, offset table says %d",
				errs.ErrOffsetOutOfRange, i, r.pos, offsets[i])
		}
		if err := skip(r, d.engine); err != nil {
			return err
		}
	}
	if r.pos != hdr.tableStart {
		return fmt.Errorf("%w: payload section ends at %d, offset table starts at %d",
			errs.ErrOffsetOutOfRange, r.pos, hdr.tableStart)
	}

	return nil
}

// Schema returns the decoder's source schema.
func (d *Decoder) Schema() *schema.Schema {
	return d.schema
}

// Target returns the schema of decoded records: the projected sub-schema
// if WithProjection was used, otherwise the source schema.
func (d *Decoder) Target() *schema.Schema {
	return d.target
}
