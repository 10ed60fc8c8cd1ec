package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sindanrelay/internal/campaign"
	"sindanrelay/internal/phase"
	"sindanrelay/internal/publish"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <folder>",
	Short: "Show what the pipeline would see for one run folder",
	Long: `Resolves the campaign identifier and merges the phase reports of one run
folder without writing the artifact, publishing, or archiving. The folder may
be a path or a bare folder name under the unsent root.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, sink, err := setup()
	if err != nil {
		return err
	}
	defer sink.Close()

	dir := args[0]
	if !filepath.IsAbs(dir) && filepath.Dir(dir) == "." {
		dir = filepath.Join(cfg.UnsentDir, dir)
	}

	id, err := campaign.Resolve(dir)
	if err != nil {
		return err
	}

	reports, warnings := phase.LoadReports(dir, id, time.Now())
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "folder:   %s\n", dir)
	fmt.Fprintf(out, "campaign: %s\n", id)
	for _, w := range warnings {
		fmt.Fprintf(out, "warning:  %v\n", w)
	}
	host := publish.Hostname()
	for _, rep := range reports {
		fmt.Fprintf(out, "phase %d (%s): %d entries -> %s\n",
			rep.Phase, rep.Layer, len(rep.Data), publish.Topic(cfg.TopicBase, host, rep.Phase))
	}
	if len(reports) == 0 {
		fmt.Fprintln(out, "no usable phase data; the pipeline would skip this folder")
	}
	return nil
}
