package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sindanrelay/internal/pipeline"
	"sindanrelay/internal/publish"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process eligible run folders once and exit",
	Long: `Selects run folders inside the time window, publishes every present phase,
archives fully-published folders, and sweeps expired archives. The exit
status is non-zero when any folder failed, so the scheduler can alert on it.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, sink, err := setup()
	if err != nil {
		return err
	}
	defer sink.Close()

	pub, err := publish.ConnectMQTT(publish.MQTTOptions{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		Username: cfg.Username,
		Password: cfg.Password,
		QoS:      byte(cfg.QoS),
		Retain:   cfg.Retain,
		Timeout:  cfg.PublishTimeout.Std(),
	})
	if err != nil {
		return fmt.Errorf("broker: %w", err)
	}
	defer pub.Close()

	summary, err := pipeline.New(cfg, pub).Run(cmd.Context())
	if err != nil {
		return err
	}

	archived, skipped, failed := summary.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "archived %d, skipped %d, failed %d, swept %d expired archive(s)\n",
		archived, skipped, failed, summary.SweptArchives)
	if summary.Failed() {
		return fmt.Errorf("%d folder(s) failed; they remain for the next invocation", failed)
	}
	return nil
}
