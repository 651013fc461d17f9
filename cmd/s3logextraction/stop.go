package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dandi/s3logextraction/internal/cache"
)

func newStopCommand(logger *logrus.Logger) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Cooperatively stop a running extraction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := cache.Load()
			if err != nil {
				return err
			}

			if err := os.WriteFile(paths.StopSentinelPath(), nil, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Stop sentinel created; waiting for in-flight workers to finish their current file.")

			deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
			for time.Now().Before(deadline) {
				entries, err := os.ReadDir(paths.Tmp)
				if err == nil && len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Extraction has stopped.")
					os.Remove(paths.StopSentinelPath())
					return nil
				}
				time.Sleep(time.Second)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Tracking of process stoppage has timed out - please try calling the command again.")
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 600, "maximum seconds to wait for workers to stop")
	return cmd
}
