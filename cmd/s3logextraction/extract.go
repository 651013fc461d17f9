package main

import (
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dandi/s3logextraction/internal/cache"
	"github.com/dandi/s3logextraction/internal/config"
	"github.com/dandi/s3logextraction/internal/extract"
	"github.com/dandi/s3logextraction/pkg/apperr"
)

func newExtractCommand(logger *logrus.Logger) *cobra.Command {
	var limit int
	var workers int
	var mode string

	cmd := &cobra.Command{
		Use:   "extract <dir>",
		Short: "Extract fields from S3 access log files under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			cfg, err := config.Load("")
			if err != nil {
				return err
			}

			if mode == "" {
				mode = cfg.Extraction.DefaultMode
			}
			parsedMode, ok := extract.ParseMode(mode)
			if !ok {
				return apperr.ConfigError("extract", "unknown --mode value").WithMetadata("mode", mode)
			}
			if workers == 0 {
				workers = cfg.Extraction.DefaultWorkers
			}

			var skipIPs *regexp.Regexp
			if cfg.Extraction.SkipIPsRegex != "" {
				skipIPs, err = regexp.Compile(cfg.Extraction.SkipIPsRegex)
				if err != nil {
					return apperr.ConfigError("extract", "invalid skip_ips_regex").Wrap(err)
				}
			}

			paths, err := cache.Load()
			if err != nil {
				return err
			}

			driver, err := extract.NewDriver(paths, parsedMode, skipIPs, cfg.Extraction.LockRetries,
				time.Duration(cfg.Extraction.LockRetryDelay), logger)
			if err != nil {
				return err
			}

			return driver.ExtractDirectory(dir, limit, workers)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of log files to process (0 = unlimited)")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count (1=serial, negative=NumCPU+n+1, 0=config default)")
	cmd.Flags().StringVar(&mode, "mode", "", "object-key normalization mode: generic or dandi")
	return cmd
}
