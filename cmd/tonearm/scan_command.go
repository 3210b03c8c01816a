package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tonearm/internal/config"
	"tonearm/internal/grouper"
	"tonearm/internal/scanner"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var skipGroup bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Catalog new audio files under the library (or path) once",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				root := s.cfg.Paths.LibraryDir
				if len(args) == 1 {
					expanded, err := config.ExpandPath(strings.TrimSpace(args[0]))
					if err != nil {
						return fmt.Errorf("resolve scan path: %w", err)
					}
					root = expanded
				}

				summary, err := s.scanner().Scan(runCtx, root)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				printScanSummary(out, summary)
				if skipGroup {
					return nil
				}
				groups, err := s.grouper().Run(runCtx)
				if err != nil {
					return err
				}
				printGroupSummary(out, groups)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&skipGroup, "no-group", false, "Skip the directory grouping pass")
	return cmd
}

func printScanSummary(out io.Writer, s scanner.Summary) {
	pairs := [][2]string{
		{"Root", s.Root},
		{"Run", s.RunID},
		{"Files seen", strconv.Itoa(s.Files)},
		{"Audio files", strconv.Itoa(s.Files - s.Images - s.Unknown)},
		{"Already cataloged", strconv.Itoa(s.Existing)},
		{"Inserted", strconv.Itoa(s.Inserted)},
		{"Probe failures", strconv.Itoa(s.Failed)},
		{"Artists linked", strconv.Itoa(s.Linked)},
		{"Lookups queued", strconv.Itoa(s.Enqueued)},
		{"Truncated", yesNo(s.Truncated)},
		{"Duration", s.Duration.Round(time.Millisecond).String()},
	}
	writeKeyValues(out, pairs)
}

func printGroupSummary(out io.Writer, g grouper.Summary) {
	fmt.Fprintf(out, "Grouped %d directories (%d audio links, %d artist folders)\n",
		g.Directories, g.AudioLinks, g.ArtistFolders)
}
