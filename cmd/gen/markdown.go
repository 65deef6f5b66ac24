package gen

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var markdownDir string

var MarkdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "Generate markdown reference pages for paddock",
	Long: `Generate one markdown page per paddock command, linked together.

By default the pages are written to the "docs" directory under the current
directory.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := ensureDir(cmd, markdownDir)
		if err != nil {
			return err
		}

		cmd.Root().DisableAutoGenTag = true

		cmd.Println("Generating paddock markdown in", dir, "...")
		if err := doc.GenMarkdownTree(cmd.Root(), dir); err != nil {
			return err
		}
		cmd.Println("Done.")

		return nil
	},
}

func init() {
	flags := MarkdownCmd.PersistentFlags()

	flags.StringVar(&markdownDir, "dir", "docs/", "the directory to write the markdown pages.")

	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}

// ensureDir normalises dir to end in a separator and creates it if it does
// not exist yet.
func ensureDir(cmd *cobra.Command, dir string) (string, error) {
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	if _, err := os.Stat(dir); err != nil && os.IsNotExist(err) {
		cmd.Println("Directory", dir, "does not exist, creating...")
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", err
		}
	}

	return dir, nil
}
