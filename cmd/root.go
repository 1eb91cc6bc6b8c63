package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/luma/heosbridge/cmd/gen"
)

var (
	// Log at debug level with a development logger
	debug bool
)

var RootCmd = &cobra.Command{
	Use:   "heosbridge",
	Short: "Control a HEOS cluster",
	Long: `heosbridge keeps a control connection to a HEOS cluster, mirrors its
players and groups and exposes them over HTTP.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")

	RootCmd.AddCommand(ConnectCmd)
	RootCmd.AddCommand(SimulateCmd)
	RootCmd.AddCommand(VersionCmd)
	RootCmd.AddCommand(gen.RootCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
