package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tonearm/internal/catalog"
)

func newArtistsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "artists",
		Short: "List cataloged artists with their audio and folder counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd, func(runCtx context.Context, s *stores) error {
				artists, err := s.catalog.ListArtists(runCtx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, artists)
				}
				stats, err := s.catalog.Stats(runCtx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(artists) == 0 {
					fmt.Fprintln(out, "No artists cataloged")
				} else {
					fmt.Fprint(out, renderTable(
						[]string{"Name", "MusicBrainz", "Type", "Area", "Audio", "Folders"},
						buildArtistRows(artists),
						4, 5,
					))
				}
				fmt.Fprintf(out, "%d audio files, %d artists, %d directories\n", stats.Audio, stats.Artists, stats.Directories)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Write JSON instead of a table")
	return cmd
}

func buildArtistRows(artists []catalog.ArtistSummary) [][]string {
	rows := make([][]string, 0, len(artists))
	for _, a := range artists {
		mb := a.MusicBrainzName
		if mb == "" {
			mb = "-"
		}
		kind := string(a.Type)
		if kind == "" {
			kind = "-"
		}
		area := a.AreaName
		if area == "" {
			area = "-"
		}
		rows = append(rows, []string{a.Name, mb, kind, area, strconv.Itoa(a.AudioCount), strconv.Itoa(a.FolderCount)})
	}
	return rows
}
