// Package cli implements the lazystore command line tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/paveg/lazystore/internal/config"
	"github.com/paveg/lazystore/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// RootOptions holds global flags for all commands
type RootOptions struct {
	ConfigFile string
	Verbose    bool
	Format     string // "text" | "json"

	cfg    config.Config
	logger *zap.Logger
}

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command of the lazystore CLI
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "lazystore",
		Short:         "Lazy dependency-tracked table store",
		Long:          "Tools around lazystore: a demo model, benchmarks and snapshot inspection.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.setup(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "JSON or YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewBenchCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))
	return cmd
}

// setup loads the configuration and builds the logger; logs go to stderr
// so json output stays parseable
func (o *RootOptions) setup(stderr io.Writer) error {
	cfg := config.NewConfig()
	if o.ConfigFile != "" {
		loaded, err := config.LoadFromFile(o.ConfigFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg = config.LoadFromEnv(cfg)
	if o.Verbose {
		cfg.VerboseLogging = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	o.cfg = cfg
	o.logger = logging.NewWriter(stderr, cfg)
	return nil
}

// write prints v as indented JSON, or calls text for the text format
func (o *RootOptions) write(w io.Writer, v any, text func(io.Writer) error) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(w)
}
