package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tanukiforge/tac"
)

func newInfoCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "info <archive>",
		Short: "Show archive header and index statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := tac.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			var packedTotal, unpackedTotal uint64
			maxBucket := 0
			perBucket := make(map[uint16]int)
			for e := range a.Entries() {
				packedTotal += uint64(e.PackedSize)
				unpackedTotal += uint64(e.UnpackedSize)
				perBucket[e.BucketKey]++
				if perBucket[e.BucketKey] > maxBucket {
					maxBucket = perBucket[e.BucketKey]
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "entries:        %d\n", a.Len())
			fmt.Fprintf(out, "buckets:        %d (largest holds %d)\n", a.BucketCount(), maxBucket)
			fmt.Fprintf(out, "seed:           %#08x\n", a.Seed())
			fmt.Fprintf(out, "payload bytes:  %d packed, %d unpacked\n", packedTotal, unpackedTotal)

			if verify {
				if err := a.VerifyLayout(); err != nil {
					return err
				}
				fmt.Fprintln(out, "layout:         ok")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "check that entry offsets tile the payload exactly")
	return cmd
}
