package root

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/coderag/coderag/pkg/coderag/dispatch"
	"github.com/coderag/coderag/pkg/coderag/embed"
	"github.com/coderag/coderag/pkg/coderag/project"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"mcp"},
		Short:   "Run the MCP server over stdio",
		Long:    "Locate the current project's documentation index (or fall back to a per-user one) and serve search_docs/list_docs/crawl_docs/manage_docs/reload_docs over stdio.",
		RunE:    runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}

	descriptor, err := project.Locate(cwd, home)
	if err != nil {
		return err
	}

	embedder := embed.New()

	server, err := dispatch.New(descriptor, embedder)
	if err != nil {
		return err
	}

	return server.Run(cmd.Context())
}
