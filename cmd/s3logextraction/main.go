package main

import (
	"os"

	"github.com/dandi/s3logextraction/internal/logging"
	"github.com/dandi/s3logextraction/pkg/apperr"
)

func main() {
	logger := logging.New()
	root := newRootCommand(logger)

	if err := root.Execute(); err != nil {
		if appErr, ok := apperr.As(err); ok {
			logger.WithFields(appErr.Fields()).Error(appErr.Message)
			if !appErr.IsRecoverable() {
				os.Exit(1)
			}
			return
		}
		logger.Error(err)
		os.Exit(1)
	}
}
