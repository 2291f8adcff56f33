package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lio "github.com/paveg/lazystore/internal/io"
	"github.com/paveg/lazystore/internal/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// InspectOptions holds the flags of the inspect command
type InspectOptions struct {
	Head int
}

// ColumnInfo describes one column of an inspected table
type ColumnInfo struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Nulls int    `json:"nulls"`
}

// InspectReport is what the inspect command prints
type InspectReport struct {
	File        string       `json:"file"`
	Rows        int          `json:"rows"`
	IDs         int          `json:"ids"`
	TimePoints  int          `json:"time_points"`
	Columns     []ColumnInfo `json:"columns"`
	Fingerprint string       `json:"fingerprint"`
	Head        []string     `json:"head,omitempty"`
}

// NewInspectCommand creates the inspect command
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Summarise a frame snapshot (.parquet or .arrow)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, opts, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&opts.Head, "head", 0, "print the first N rows")
	return cmd
}

func runInspect(rootOpts *RootOptions, opts *InspectOptions, path string, w io.Writer) error {
	t, err := readSnapshot(rootOpts, path)
	if err != nil {
		return err
	}
	rootOpts.logger.Debug("snapshot read", zap.String("file", path), zap.Int("rows", t.Len()))

	report := InspectReport{
		File:        path,
		Rows:        t.Len(),
		Fingerprint: fmt.Sprintf("%016x", t.Fingerprint()),
	}

	ids := make(map[int64]struct{})
	times := make(map[int64]struct{})
	for _, k := range t.Keys() {
		ids[k.ID] = struct{}{}
		times[k.T] = struct{}{}
	}
	report.IDs = len(ids)
	report.TimePoints = len(times)

	for _, f := range t.Fields() {
		c, _ := t.Column(f.Name)
		nulls := 0
		for _, v := range c.Values() {
			if v == nil {
				nulls++
			}
		}
		report.Columns = append(report.Columns, ColumnInfo{Name: f.Name, DType: f.DType.String(), Nulls: nulls})
	}

	for i := range min(opts.Head, t.Len()) {
		report.Head = append(report.Head, formatRow(t, i))
	}

	return rootOpts.write(w, report, report.text)
}

func readSnapshot(rootOpts *RootOptions, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader lio.TableReader
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		reader = lio.NewParquetReader(f, lio.ParquetOptions{BatchSize: rootOpts.cfg.SnapshotBatchSize}, nil)
	case ".arrow", ".ipc":
		t, err := lio.ReadIPC(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%s: unsupported snapshot format %q", path, ext)
	}

	t, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func formatRow(t *table.Table, i int) string {
	row := t.RowAt(i)
	parts := make([]string, 0, len(row)+1)
	parts = append(parts, t.Key(i).String())
	for _, name := range t.Columns() {
		parts = append(parts, name+"="+lio.FormatText(row[name]))
	}
	return strings.Join(parts, " ")
}

func (r InspectReport) text(w io.Writer) error {
	fmt.Fprintf(w, "%s: %d rows, %d ids, %d time points\n", r.File, r.Rows, r.IDs, r.TimePoints)
	fmt.Fprintf(w, "fingerprint %s\n\n", r.Fingerprint)
	for _, c := range r.Columns {
		fmt.Fprintf(w, "  %-24s %-8s %d nulls\n", c.Name, c.DType, c.Nulls)
	}
	if len(r.Head) > 0 {
		fmt.Fprintln(w)
		for _, line := range r.Head {
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
