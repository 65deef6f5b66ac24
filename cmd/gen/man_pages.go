package gen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/paddock/internal/meta"
)

var manDir string

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages for paddock",
	Long: `Generate up-to-date man pages for every paddock command.

By default the pages are written to the "man" directory under the current
directory, which is created if needed.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := ensureDir(cmd, manDir)
		if err != nil {
			return err
		}

		header := &doc.GenManHeader{
			Section: "1",
			Manual:  "Paddock Manual",
			Source:  fmt.Sprintf("paddock %s", meta.Version),
		}

		cmd.Root().DisableAutoGenTag = true

		cmd.Println("Generating paddock man pages in", dir, "...")
		if err := doc.GenManTree(cmd.Root(), header, dir); err != nil {
			return err
		}
		cmd.Println("Done.")

		return nil
	},
}

func init() {
	flags := ManPagesCmd.PersistentFlags()

	flags.StringVar(&manDir, "dir", "man/", "the directory to write the man pages.")

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}
