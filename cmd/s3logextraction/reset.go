package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dandi/s3logextraction/internal/cache"
)

func newResetCommand(logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove a cache subtree and its associated records",
	}

	for _, subtree := range []string{cache.SubtreeExtraction, cache.SubtreeTmp, cache.SubtreeIPs} {
		subtree := subtree
		cmd.AddCommand(&cobra.Command{
			Use:   subtree,
			Short: fmt.Sprintf("Remove the %s subtree", subtree),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				paths, err := cache.Load()
				if err != nil {
					return err
				}
				if err := paths.Reset(subtree); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %s subtree under %s\n", subtree, paths.Root)
				return nil
			},
		})
	}
	return cmd
}
