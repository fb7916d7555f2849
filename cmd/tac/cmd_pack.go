package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tanukiforge/tac"
)

func newPackCmd() *cobra.Command {
	var (
		seed           uint32
		workers        int
		skipUnreadable bool
		verbose        bool
	)

	cmd := &cobra.Command{
		Use:   "pack <dir> <archive>",
		Short: "Pack a directory tree into an archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []tac.CreateOption{
				tac.CreateWithWorkers(workers),
				tac.CreateWithSkipUnreadable(skipUnreadable),
			}
			if cmd.Flags().Changed("seed") {
				opts = append(opts, tac.CreateWithSeed(seed))
			}
			if verbose {
				opts = append(opts, tac.CreateWithLogger(slog.New(
					slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
			}

			stats, err := tac.Create(cmd.Context(), args[0], args[1], opts...)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"packed %d file(s) into %s (%d buckets, %d index bytes, %d payload bytes, seed %#08x)\n",
				stats.EntryCount, args[1], stats.BucketCount, stats.IndexSize, stats.PayloadBytes, stats.Seed)
			if stats.Skipped > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %d unreadable file(s)\n", stats.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&seed, "seed", 0, "pin the archive hash seed (default: random)")
	cmd.Flags().IntVar(&workers, "workers", 1, "files compressed concurrently")
	cmd.Flags().BoolVar(&skipUnreadable, "skip-unreadable", false, "skip unreadable files instead of aborting")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log packing progress to stderr")
	return cmd
}
