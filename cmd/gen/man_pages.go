package gen

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/luma/heosbridge/internal/meta"
)

var (
	manDir string
)

var ManPagesCmd = &cobra.Command{
	Use:   "man",
	Short: "Generate man pages",
	Long: `Write one section 1 man page per heosbridge command, "man" under the
current directory by default.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := outputDir(cmd, manDir)
		if err != nil {
			return err
		}

		header := &doc.GenManHeader{
			Section: "1",
			Manual:  "HEOS Bridge Manual",
			Source:  fmt.Sprintf("heosbridge %s", meta.Version),
		}

		cmd.Root().DisableAutoGenTag = true

		if err := doc.GenManTree(cmd.Root(), header, dir); err != nil {
			return err
		}

		cmd.Println("Man pages written to", dir)

		return nil
	},
}

func init() {
	dirFlag(ManPagesCmd, &manDir, "man/", "the directory to write the man pages.")
}
