package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tanukiforge/tac"
)

func newExtractCmd() *cobra.Command {
	var listFile string

	cmd := &cobra.Command{
		Use:   "extract <archive> <dir>",
		Short: "Extract named members into a directory",
		Long: "Extract archive members into a directory. The archive stores path\n" +
			"hashes rather than paths, so member names come from a listing file\n" +
			"(one relative path per line), conventionally tanuki.lst.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := readNameList(listFile)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("listing %s names no files", listFile)
			}

			a, err := tac.Open(args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Extract(args[1], names); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d file(s) into %s\n", len(names), args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&listFile, "list", tac.ReservedListName, "listing file with one member path per line")
	return cmd
}

// readNameList parses a listing file: one relative path per line, blank
// lines and '#' comments ignored.
func readNameList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return names, nil
}
