// sindanrelay collects the result folders a SINDAN diagnostic client leaves
// behind, merges each phase's JSON reports, publishes them to an MQTT broker
// under per-phase topics, and archives fully-published folders. It runs to
// completion and exits; a scheduler invokes it periodically.
//
// Usage:
//
//	sindanrelay run     [--config <path>]
//	sindanrelay sweep   [--config <path>]
//	sindanrelay inspect <folder> [--config <path>]
//	sindanrelay serve   [--config <path>]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "sindanrelay",
	Short: "Relay SINDAN diagnostic results to an MQTT broker",
	Long: "sindanrelay aggregates per-phase SINDAN diagnostic reports into one CSV\nartifact per run, publishes each phase to the broker, and archives the run\nfolder once every phase was accepted.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
