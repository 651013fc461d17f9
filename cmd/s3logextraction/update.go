package main

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dandi/s3logextraction/internal/cache"
	"github.com/dandi/s3logextraction/internal/config"
	"github.com/dandi/s3logextraction/internal/ipindex"
	"github.com/dandi/s3logextraction/pkg/apperr"
	"github.com/dandi/s3logextraction/pkg/cryptostore"
)

func newUpdateCommand(logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run an update pass against the cache",
	}

	cmd.AddCommand(newUpdateIPCommand(logger))

	for _, stub := range []string{"summaries", "totals"} {
		stub := stub
		cmd.AddCommand(&cobra.Command{
			Use:   stub,
			Short: fmt.Sprintf("(collaborator-owned) update %s", stub),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return collaboratorStub(cmd, stub)
			},
		})
	}
	return cmd
}

func newUpdateIPCommand(logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ip",
		Short: "IP-related update passes",
	}

	var seed uint64
	indexesCmd := &cobra.Command{
		Use:   "indexes",
		Short: "Run the IP indexer (C6) over the mirror tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := cache.Load()
			if err != nil {
				return err
			}
			cfg, err := config.Load("")
			if err != nil {
				return err
			}
			password, err := cryptostore.Password()
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("seed") {
				seed, err = randomSeed()
				if err != nil {
					return err
				}
			}

			indexer := ipindex.NewIndexer(paths.Extraction, paths.IPs, password, seed,
				cfg.Indexing.BatchSize, cfg.Indexing.CollisionRetries, logger)
			return indexer.Run()
		},
	}
	indexesCmd.Flags().Uint64Var(&seed, "seed", 0, "PRNG seed for index assignment (default: crypto-random)")

	for _, stub := range []string{"regions", "coordinates"} {
		stub := stub
		cmd.AddCommand(&cobra.Command{
			Use:   stub,
			Short: fmt.Sprintf("(collaborator-owned) update ip %s", stub),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return collaboratorStub(cmd, "ip "+stub)
			},
		})
	}
	cmd.AddCommand(indexesCmd)
	return cmd
}

// collaboratorStub reports the commands this engine deliberately does not
// implement (spec §6): they belong to downstream collaborator tooling that
// reads the mirror tree and encrypted index map, not to the core extraction
// engine.
func collaboratorStub(cmd *cobra.Command, name string) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "%q is not part of the core extraction/indexing engine; it is owned by a downstream collaborator.\n", name)
	return errCollaboratorOwned
}

var errCollaboratorOwned = fmt.Errorf("collaborator-owned command")

// randomSeed draws the production default PRNG seed from crypto-random
// entropy, used whenever --seed is not explicitly passed.
func randomSeed() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, apperr.New("SEED_GENERATION_FAILED", "cli", "update_ip_indexes", "could not draw a random seed").Wrap(err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
