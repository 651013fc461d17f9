package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCommand(logger *logrus.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "s3logextraction",
		Short:         "Extract, index, and mirror S3 server-access logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newExtractCommand(logger),
		newStopCommand(logger),
		newConfigCommand(logger),
		newResetCommand(logger),
		newUpdateCommand(logger),
	)
	return root
}
