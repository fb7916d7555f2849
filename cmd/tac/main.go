package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tac",
		Short: "Pack directory trees into TAC archives and read them back",
	}

	root.AddCommand(newPackCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newExtractCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
