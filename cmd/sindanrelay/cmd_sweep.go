package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sindanrelay/internal/archive"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete expired archives without processing any folders",
	RunE:  runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, sink, err := setup()
	if err != nil {
		return err
	}
	defer sink.Close()

	removed := archive.Sweep(cfg.SentDir, time.Now(), cfg.Retention.Std())
	fmt.Fprintf(cmd.OutOrStdout(), "swept %d expired archive(s) from %s\n", removed, cfg.SentDir)
	return nil
}
