package demo

import (
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
)

// SeedOptions sizes the generated model
type SeedOptions struct {
	Segments         int
	SpinesPerSegment int
	TimePoints       int
}

// DefaultSeedOptions returns a small model
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{Segments: 10, SpinesPerSegment: 20, TimePoints: 1}
}

// Rows returns the number of spine rows the options produce
func (o SeedOptions) Rows() int {
	return o.Segments * o.SpinesPerSegment * max(o.TimePoints, 1)
}

// Seed fills the segments and spines frames. Segment i runs from the origin
// to (i+1, 0); its spines sit at x = 0, 1, ... along it. Seeding bypasses
// the undo log.
func Seed(m *Model, opts SeedOptions) error {
	times := max(opts.TimePoints, 1)
	skip := store.UpdateOptions{SkipLog: true}

	for t := range int64(times) {
		for seg := range int64(opts.Segments) {
			err := m.Segments.Update([]table.Key{table.KT(seg, t)}, table.Row{
				"name":  "segment",
				"start": table.Point{},
				"end":   table.Point{X: float64(seg + 1)},
			}, skip)
			if err != nil {
				return err
			}
		}
	}

	spineID := int64(0)
	for seg := range int64(opts.Segments) {
		for i := range opts.SpinesPerSegment {
			keys := make([]table.Key, times)
			for t := range times {
				keys[t] = table.KT(spineID, int64(t))
			}
			err := m.Spines.Update(keys, table.Row{
				"segmentID": seg,
				"point":     table.Point{X: float64(i)},
			}, skip)
			if err != nil {
				return err
			}
			spineID++
		}
	}
	return nil
}
