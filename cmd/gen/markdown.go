package gen

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var (
	markdownDir string
)

var MarkdownCmd = &cobra.Command{
	Use:   "markdown",
	Short: "Generate a markdown command reference",
	Long: `Write one markdown file per heosbridge command, linked to each other,
"docs/cli" under the current directory by default.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := outputDir(cmd, markdownDir)
		if err != nil {
			return err
		}

		cmd.Root().DisableAutoGenTag = true

		if err := doc.GenMarkdownTree(cmd.Root(), dir); err != nil {
			return err
		}

		cmd.Println("Markdown reference written to", dir)

		return nil
	},
}

func init() {
	dirFlag(MarkdownCmd, &markdownDir, "docs/cli/", "the directory to write the markdown files.")
}
