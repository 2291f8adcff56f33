// Package demo declares a small annotation model on top of the store:
// timed line segments, spines attached to them and a settings record. It
// backs the CLI demo and benchmarks and serves as a cross-frame fixture in
// tests.
package demo

import (
	"fmt"

	"github.com/paveg/lazystore/internal/errors"
	"github.com/paveg/lazystore/internal/schema"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
)

// Frame keys
const (
	SegmentsKey = "segments"
	SpinesKey   = "spines"
	SettingsKey = "settings"
)

// SegmentsSchema declares segments with a computed length and the number of
// spines attached at each time point
func SegmentsSchema() *schema.Schema {
	return schema.MustNew(SegmentsKey,
		schema.Timed(),
		schema.WithLink(SpinesKey, schema.Link{RemoteColumn: "segmentID"}),
		schema.WithAttributes(
			schema.Attribute{Key: "name", Title: "Name", DType: table.StringType, Default: ""},
			schema.Attribute{Key: "start", Title: "Start", DType: table.PointType},
			schema.Attribute{Key: "end", Title: "End", DType: table.PointType},
			schema.Attribute{
				Key: "length", Title: "Length", DType: table.Float64Type, Kind: schema.Computed,
				Dependencies: schema.Dependencies{"": {"start", "end"}},
			},
			schema.Attribute{
				Key: "spineCount", Title: "Spine count", DType: table.Int64Type, Kind: schema.Computed,
				Dependencies: schema.Dependencies{SpinesKey: {"segmentID"}},
			},
		),
	)
}

// SpinesSchema declares spines anchored on a segment
func SpinesSchema() *schema.Schema {
	return schema.MustNew(SpinesKey,
		schema.Timed(),
		schema.WithLink(SegmentsKey, schema.Link{Column: "segmentID"}),
		schema.WithLink(SettingsKey, schema.Link{Broadcast: true}),
		schema.WithAttributes(
			schema.Attribute{Key: "segmentID", Title: "Segment", DType: table.Int64Type, Rule: "gte=0"},
			schema.Attribute{Key: "point", Title: "Point", DType: table.PointType},
			schema.Attribute{Key: "accepted", Title: "Accepted", DType: table.BoolType, Default: false},
			schema.Attribute{Key: "note", Title: "Note", DType: table.StringType, Default: "", Rule: "max=64"},
			schema.Attribute{
				Key: "segmentLength", Title: "Segment length", DType: table.Float64Type, Kind: schema.Computed,
				Dependencies: schema.Dependencies{SegmentsKey: {"length"}},
			},
			schema.Attribute{
				Key: "scaledX", Title: "Scaled x", DType: table.Float64Type, Kind: schema.Computed,
				Dependencies: schema.Dependencies{"": {"point"}, SettingsKey: {"scale"}},
			},
		),
	)
}

// SettingsSchema declares the analysis parameters shared by every spine
func SettingsSchema() *schema.Schema {
	return schema.MustNew(SettingsKey,
		schema.WithAttributes(
			schema.Attribute{Key: "scale", Title: "Scale", DType: table.Float64Type, Default: 1.0, Rule: "gt=0"},
		),
	)
}

// Model holds the registered frames
type Model struct {
	Store    *store.Store
	Segments *store.Frame
	Spines   *store.Frame
	Settings *store.Record
}

// NewModel registers the model frames on s and binds their compute functions
func NewModel(s *store.Store) (*Model, error) {
	m := &Model{Store: s}

	var err error
	if m.Settings, err = s.AddRecord(SettingsSchema()); err != nil {
		return nil, err
	}
	if m.Segments, err = s.AddFrame(SegmentsSchema(), nil); err != nil {
		return nil, err
	}
	if m.Spines, err = s.AddFrame(SpinesSchema(), nil); err != nil {
		return nil, err
	}

	binds := []struct {
		frame  *store.Frame
		column string
		fn     store.ComputeFunc
	}{
		{m.Segments, "length", SegmentLength},
		{m.Segments, "spineCount", SpineCount},
		{m.Spines, "segmentLength", SpineSegmentLength},
		{m.Spines, "scaledX", ScaledX},
	}
	for _, b := range binds {
		if err := b.frame.Bind(b.column, b.fn); err != nil {
			return nil, fmt.Errorf("binding %s.%s: %w", b.frame.Key(), b.column, err)
		}
	}
	return m, nil
}

// SegmentLength is the distance between a segment's end points
func SegmentLength(view *store.Frame) (store.Result, error) {
	starts, err := store.ColumnAs[table.Point](view, "start")
	if err != nil {
		return store.Result{}, err
	}
	ends, err := store.ColumnAs[table.Point](view, "end")
	if err != nil {
		return store.Result{}, err
	}

	lengths := make([]float64, len(starts))
	for i := range starts {
		lengths[i] = starts[i].Distance(ends[i])
	}
	return store.ValuesOf(lengths), nil
}

// SpineCount counts the spines attached to each segment at its time point
func SpineCount(view *store.Frame) (store.Result, error) {
	spines, err := view.Frame(SpinesKey)
	if err != nil {
		return store.Result{}, err
	}
	spineKeys, err := spines.Keys()
	if err != nil {
		return store.Result{}, err
	}
	segmentIDs, err := spines.Column("segmentID")
	if err != nil {
		return store.Result{}, err
	}

	counts := make(map[table.Key]int64)
	for i, k := range spineKeys {
		if id, ok := segmentIDs[i].(int64); ok {
			counts[table.KT(id, k.T)]++
		}
	}

	keys, err := view.Keys()
	if err != nil {
		return store.Result{}, err
	}
	out := make([]int64, len(keys))
	for i, k := range keys {
		out[i] = counts[k]
	}
	return store.ValuesOf(out), nil
}

// SpineSegmentLength copies the length of the segment a spine is anchored on
func SpineSegmentLength(view *store.Frame) (store.Result, error) {
	segments, err := view.Frame(SegmentsKey)
	if err != nil {
		return store.Result{}, err
	}
	keys, err := view.Keys()
	if err != nil {
		return store.Result{}, err
	}
	segmentIDs, err := view.Column("segmentID")
	if err != nil {
		return store.Result{}, err
	}

	out := make([]any, len(keys))
	for i, k := range keys {
		id, ok := segmentIDs[i].(int64)
		if !ok {
			continue
		}
		v, err := segments.Cell(table.KT(id, k.T), "length")
		if errors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return store.Result{}, err
		}
		out[i] = v
	}
	return store.Result{Values: out}, nil
}

// ScaledX is the x coordinate of a spine times the settings scale
func ScaledX(view *store.Frame) (store.Result, error) {
	settings, err := view.Frame(SettingsKey)
	if err != nil {
		return store.Result{}, err
	}
	scale, err := settings.Cell(store.RecordKey, "scale")
	if err != nil {
		return store.Result{}, err
	}
	factor, _ := scale.(float64)

	points, err := store.ColumnAs[table.Point](view, "point")
	if err != nil {
		return store.Result{}, err
	}
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.X * factor
	}
	return store.ValuesOf(out), nil
}
