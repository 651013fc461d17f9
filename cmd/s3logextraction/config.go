package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dandi/s3logextraction/internal/cache"
)

func newConfigCommand(logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Cache directory management",
	}

	setCmd := &cobra.Command{
		Use:   "set <dir>",
		Short: "Set the cache root directory and persist it to the pointer file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := cache.SetCacheRoot(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache root set to %s\n", paths.Root)
			return nil
		},
	}

	cacheCmd.AddCommand(setCmd)
	cmd.AddCommand(cacheCmd)
	return cmd
}
