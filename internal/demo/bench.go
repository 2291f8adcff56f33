package demo

import (
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
)

// Scenarios returns the benchmark workloads over a model seeded with opts.
// Each scenario builds its own store with newStore.
func Scenarios(opts SeedOptions, iterations int, newStore func() *store.Store) []monitoring.Scenario {
	var m *Model
	setup := func() error {
		var err error
		if m, err = NewModel(newStore()); err != nil {
			return err
		}
		return Seed(m, opts)
	}

	var scale float64 = 1
	return []monitoring.Scenario{
		{
			Name:        "cold read",
			Description: "invalidate every spine then read all computed spine columns",
			Rows:        opts.Rows(),
			Iterations:  iterations,
			Setup:       setup,
			Run: func() error {
				scale++
				if err := m.Settings.Set(table.Row{"scale": scale}, store.UpdateOptions{SkipLog: true}); err != nil {
					return err
				}
				_, err := m.Spines.Table()
				return err
			},
		},
		{
			Name:        "warm read",
			Description: "read all computed spine columns from the cache",
			Rows:        opts.Rows(),
			Iterations:  iterations,
			Setup: func() error {
				if err := setup(); err != nil {
					return err
				}
				_, err := m.Spines.Table()
				return err
			},
			Run: func() error {
				_, err := m.Spines.Table()
				return err
			},
		},
		{
			Name:        "edit and read",
			Description: "move one segment end, then read the spines that depend on it",
			Rows:        opts.SpinesPerSegment,
			Iterations:  iterations,
			Setup:       setup,
			Run: func() error {
				scale++
				err := m.Segments.Update([]table.Key{table.KT(0, 0)},
					table.Row{"end": table.Point{X: scale}}, store.UpdateOptions{})
				if err != nil {
					return err
				}
				_, err = m.Spines.Column("segmentLength")
				return err
			},
		},
		{
			Name:        "undo redo",
			Description: "undo and redo one segment edit",
			Rows:        opts.SpinesPerSegment,
			Iterations:  iterations,
			Setup: func() error {
				if err := setup(); err != nil {
					return err
				}
				return m.Segments.Update([]table.Key{table.KT(0, 0)},
					table.Row{"end": table.Point{X: 2, Y: 2}}, store.UpdateOptions{})
			},
			Run: func() error {
				if _, err := m.Store.Undo(); err != nil {
					return err
				}
				_, err := m.Store.Redo()
				return err
			},
		},
	}
}
