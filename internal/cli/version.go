package cli

import (
	"io"

	"github.com/paveg/lazystore/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build and snapshot format versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Info()
			info.Deps = nil
			return rootOpts.write(cmd.OutOrStdout(), info, func(w io.Writer) error {
				_, err := io.WriteString(w, info.String())
				return err
			})
		},
	}
}
