package main

import (
	"github.com/spf13/cobra"

	"github.com/tanukiforge/tac"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <archive> <path>",
		Short: "Write one archive member to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := tac.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.ReadFile(args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
