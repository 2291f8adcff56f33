package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/paveg/lazystore/internal/demo"
	"github.com/paveg/lazystore/internal/monitoring"
	"github.com/paveg/lazystore/internal/store"
	"github.com/paveg/lazystore/internal/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DemoOptions holds the flags of the demo command
type DemoOptions struct {
	Seed        demo.SeedOptions
	MetricsAddr string
	Hold        time.Duration
	Out         string
}

// DemoReport is what the demo command prints
type DemoReport struct {
	RunID          string                    `json:"run_id"`
	Segments       int                       `json:"segments"`
	Spines         int                       `json:"spines"`
	LengthBefore   any                       `json:"length_before"`
	LengthAfter    any                       `json:"length_after"`
	LengthUndone   any                       `json:"length_undone"`
	PendingColumns []string                  `json:"pending_columns"`
	Dependents     map[string][]string       `json:"dependents"`
	Metrics        monitoring.MetricsSummary `json:"metrics"`
	MetricsAddr    string                    `json:"metrics_addr,omitempty"`
	Snapshot       string                    `json:"snapshot,omitempty"`
}

// NewDemoCommand creates the demo command
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DemoOptions{Seed: demo.DefaultSeedOptions()}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build the segment/spine model, edit it and show what was recomputed",
		Long: `Seed a model of segments, spines and a settings record, then edit a
segment, read the dependent spine column, undo the edit and report the
cached values and store metrics at each step.

With --metrics-addr the store metrics are served in prometheus format
while the demo runs and for --hold afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context(), rootOpts, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&opts.Seed.Segments, "segments", opts.Seed.Segments, "number of segments")
	cmd.Flags().IntVar(&opts.Seed.SpinesPerSegment, "spines", opts.Seed.SpinesPerSegment, "spines per segment")
	cmd.Flags().IntVar(&opts.Seed.TimePoints, "time-points", opts.Seed.TimePoints, "time points per row")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve metrics on this address, e.g. :9464")
	cmd.Flags().DurationVar(&opts.Hold, "hold", 0, "keep serving metrics this long after the demo")
	cmd.Flags().StringVar(&opts.Out, "out", "", "write the spines frame to this Parquet file")
	return cmd
}

func runDemo(ctx context.Context, rootOpts *RootOptions, opts *DemoOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Seed.Segments <= 0 || opts.Seed.SpinesPerSegment <= 0 {
		return fmt.Errorf("segments and spines must be positive")
	}

	report := DemoReport{RunID: uuid.NewString()}
	logger := rootOpts.logger.With(zap.String("run", report.RunID))
	metrics := monitoring.NewMetricsCollector(true)

	if opts.MetricsAddr != "" {
		server, err := monitoring.NewMonitoringServer(metrics, opts.MetricsAddr)
		if err != nil {
			return err
		}
		if err := server.Start(); err != nil {
			return fmt.Errorf("starting metrics server: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
		report.MetricsAddr = server.Addr()
		logger.Info("serving metrics", zap.String("addr", server.Addr()))
	}

	s := store.NewStore(
		store.WithConfig(rootOpts.cfg),
		store.WithLogger(logger),
		store.WithMetrics(metrics),
	)
	m, err := demo.NewModel(s)
	if err != nil {
		return err
	}
	if err := demo.Seed(m, opts.Seed); err != nil {
		return fmt.Errorf("seeding: %w", err)
	}
	report.Segments = m.Segments.Len()
	report.Spines = m.Spines.Len()
	logger.Info("demo model seeded", zap.Int("segments", report.Segments), zap.Int("spines", report.Spines))
	report.Dependents = s.Dependents(demo.SegmentsKey, "end")

	spine := table.KT(0, 0)
	if report.LengthBefore, err = m.Spines.Cell(spine, "segmentLength"); err != nil {
		return err
	}

	err = m.Segments.Update([]table.Key{table.KT(0, 0)},
		table.Row{"end": table.Point{X: 3, Y: 4}}, store.UpdateOptions{})
	if err != nil {
		return err
	}
	if report.PendingColumns, err = m.Spines.PendingColumns(); err != nil {
		return err
	}
	if report.LengthAfter, err = m.Spines.Cell(spine, "segmentLength"); err != nil {
		return err
	}

	if _, err := s.Undo(); err != nil {
		return err
	}
	if report.LengthUndone, err = m.Spines.Cell(spine, "segmentLength"); err != nil {
		return err
	}

	if opts.Out != "" {
		if err := writeSnapshot(m.Spines, opts.Out); err != nil {
			return err
		}
		report.Snapshot = opts.Out
	}
	report.Metrics = metrics.GetSummary()

	if err := rootOpts.write(w, report, report.text); err != nil {
		return err
	}

	if opts.MetricsAddr != "" && opts.Hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(opts.Hold):
		}
	}
	return nil
}

func writeSnapshot(f *store.Frame, path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := f.WriteParquet(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (r DemoReport) text(w io.Writer) error {
	fmt.Fprintf(w, "Run %s\n", r.RunID)
	fmt.Fprintf(w, "Seeded %d segments and %d spines\n", r.Segments, r.Spines)
	fmt.Fprintf(w, "segments.end invalidates %v\n\n", r.Dependents)
	fmt.Fprintf(w, "spine 0 segmentLength: %v\n", r.LengthBefore)
	fmt.Fprintf(w, "after moving segment 0: pending %v, segmentLength %v\n", r.PendingColumns, r.LengthAfter)
	fmt.Fprintf(w, "after undo: segmentLength %v\n\n", r.LengthUndone)

	fmt.Fprintf(w, "%d operations, %d rows processed, %d failures\n",
		r.Metrics.TotalOperations, r.Metrics.TotalRows, r.Metrics.Failures)
	for _, op := range table.SortedNames(r.Metrics.OperationCounts) {
		fmt.Fprintf(w, "  %-10s %6d ops %8d rows\n", op, r.Metrics.OperationCounts[op], r.Metrics.OperationRows[op])
	}
	if r.Snapshot != "" {
		fmt.Fprintf(w, "\nspines written to %s\n", r.Snapshot)
	}
	if r.MetricsAddr != "" {
		fmt.Fprintf(w, "metrics served on http://%s/metrics\n", r.MetricsAddr)
	}
	return nil
}
