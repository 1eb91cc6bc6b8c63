package gen

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "gen",
	Short: "Generate heosbridge documentation",
	Long: `Generate reference documentation for the heosbridge commands, either
as man pages or as markdown.`,
}

func init() {
	RootCmd.AddCommand(ManPagesCmd)
	RootCmd.AddCommand(MarkdownCmd)
}

// outputDir returns dir with a trailing separator, creating it if needed.
func outputDir(cmd *cobra.Command, dir string) (string, error) {
	dir = filepath.Clean(dir) + string(filepath.Separator)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		cmd.Println("Creating", dir)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", err
		}
	}

	return dir, nil
}

func dirFlag(cmd *cobra.Command, target *string, value, usage string) {
	flags := cmd.PersistentFlags()

	flags.StringVar(target, "dir", value, usage)

	// For bash-completion
	if err := flags.SetAnnotation("dir", cobra.BashCompSubdirsInDir, []string{}); err != nil {
		panic(err)
	}
}
