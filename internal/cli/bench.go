package cli

import (
	"fmt"
	"io"

	"github.com/paveg/lazystore/internal/demo"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// BenchOptions holds the flags of the bench command
type BenchOptions struct {
	Seed       demo.SeedOptions
	Iterations int
}

// NewBenchCommand creates the bench command
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{
		Seed:       demo.SeedOptions{Segments: 100, SpinesPerSegment: 100, TimePoints: 1},
		Iterations: 10,
	}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time reads, edits and undo on a seeded model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Seed.Segments, "segments", opts.Seed.Segments, "number of segments")
	cmd.Flags().IntVar(&opts.Seed.SpinesPerSegment, "spines", opts.Seed.SpinesPerSegment, "spines per segment")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", opts.Iterations, "timed iterations per scenario")
	return cmd
}

func runBench(rootOpts *RootOptions, opts *BenchOptions, w io.Writer) error {
	if opts.Seed.Segments <= 0 || opts.Seed.SpinesPerSegment <= 0 {
		return fmt.Errorf("segments and spines must be positive")
	}

	// store logs would dominate the timings
	newStore := func() *store.Store {
		return store.NewStore(store.WithConfig(rootOpts.cfg), store.WithLogger(zap.NewNop()))
	}

	suite := monitoring.NewBenchmarkSuite()
	for _, sc := range demo.Scenarios(opts.Seed, opts.Iterations, newStore) {
		suite.AddScenario(sc)
	}
	rootOpts.logger.Info("running benchmark", zap.Int("rows", opts.Seed.Rows()), zap.Int("iterations", opts.Iterations))
	results := suite.Run()

	return rootOpts.write(w, results, func(w io.Writer) error {
		_, err := io.WriteString(w, suite.GenerateReport())
		return err
	})
}
