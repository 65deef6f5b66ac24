package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/paddock/cmd/gen"
	"github.com/luma/paddock/internal/meta"
)

var rootCmd = &cobra.Command{
	Use:     "paddock",
	Short:   "Observe and steer a racing simulator's broadcast",
	Version: meta.GetInfo().String(),
}

func init() {
	rootCmd.AddCommand(ConnectCmd)
	rootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
