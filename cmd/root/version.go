package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  "Display the version, build time, and commit hash",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "coderag version %s\n", version.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Build time: %s\n", version.BuildTime)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", version.Commit)
		},
	}
}
