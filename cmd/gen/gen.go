package gen

import (
	"github.com/spf13/cobra"
)

// RootCmd groups the generators that produce paddock's documentation
var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate documentation for paddock",
	Long: `Generate documentation for paddock

Each subcommand writes one documentation format for the whole command tree.`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
	RootCmd.AddCommand(MarkdownCmd)
}
