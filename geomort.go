// Package geomort provides the indexing and encoding core of a distributed
// geospatial feature store: a Z3 space-filling-curve query planner and a
// versioned binary record codec with offset-table random access.
//
// Features are points (or small geometries) tagged with a timestamp. The
// index interleaves longitude, latitude and time into a single sorted key
// dimension, partitioned into week-wide epochs, so a bounding-box-and-time
// query becomes a small set of contiguous key-range scans. The codec
// serializes feature attributes into a compact self-indexing binary record
// supporting lazy and projected decoding.
//
// # Planning a query
//
//	import "github.com/geomort/geomort"
//
//	sch, _ := schema.New("vessels", []schema.Attribute{
//	    {Name: "name", Kind: format.KindString, Nullable: true},
//	    {Name: "dtg", Kind: format.KindDate},
//	    {Name: "geom", Kind: format.KindGeometry, SRID: 4326},
//	})
//
//	planner, _ := geomort.NewPlanner("vessels_z3", sch)
//	qp, _ := planner.Plan(filter.NewAnd(
//	    &filter.BBox{Attribute: "geom", XMin: -80, YMin: 30, XMax: -70, YMax: 40},
//	    &filter.During{Attribute: "dtg", Start: from, End: to},
//	))
//	for _, r := range qp.Ranges {
//	    // hand [r.Start, r.End) to the key-value store scanner
//	}
//
// # Encoding and decoding records
//
//	encoder, _ := geomort.NewEncoder(sch)
//	defer encoder.Close()
//
//	rec := codec.NewRecord(sch)
//	rec.ID = "vessel-001"
//	_ = rec.Set("dtg", time.Now())
//	_ = rec.Set("geom", geom.NewPointFlat(geom.XY, []float64{-73.9, 40.7}))
//	data, _ := encoder.Encode(rec)
//
//	decoder, _ := geomort.NewDecoder(sch)
//	out, _ := decoder.Decode(data)
//
// # Package structure
//
// This package provides convenient top-level wrappers around the plan and
// codec packages, covering the common cases. For fine-grained control
// (projected decoding, lazy cursors, metadata blocks, custom registries)
// use those packages directly.
package geomort

import (
	"github.com/geomort/geomort/codec"
	"github.com/geomort/geomort/internal/hash"
	"github.com/geomort/geomort/plan"
	"github.com/geomort/geomort/schema"
)

// FeatureID hashes a feature identifier to its 64-bit xxHash64 form, used
// where fixed-width ids are needed (sharding, caches).
func FeatureID(id string) uint64 {
	return hash.ID(id)
}

// SchemaFingerprint returns the schema's canonical 64-bit fingerprint.
// Equal fingerprints mean structurally identical schemas.
func SchemaFingerprint(s *schema.Schema) uint64 {
	return s.Fingerprint()
}

// NewEncoder creates a record encoder for the given schema with default
// settings: little-endian payloads, the process-wide dispatch registry and
// no metadata block.
func NewEncoder(s *schema.Schema, opts ...codec.EncoderOption) (*codec.Encoder, error) {
	return codec.NewEncoder(s, opts...)
}

// NewDecoder creates a record decoder for the given schema with default
// settings matching NewEncoder.
func NewDecoder(s *schema.Schema, opts ...codec.DecoderOption) (*codec.Decoder, error) {
	return codec.NewDecoder(s, opts...)
}

// NewPlanner creates a query planner targeting the given index table. The
// indexed geometry and date attributes default to the schema's first of
// each kind.
func NewPlanner(table string, s *schema.Schema, opts ...plan.PlannerOption) (*plan.Planner, error) {
	return plan.NewPlanner(table, s, opts...)
}
