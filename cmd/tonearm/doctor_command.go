package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tonearm/internal/musicbrainz"
	"tonearm/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, ffprobe and MusicBrainz connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var client musicbrainz.Searcher
			if !offline {
				client = musicbrainz.NewFromConfig(cfg)
			}
			results := preflight.RunAll(cmd.Context(), cfg, client)

			out := cmd.OutOrStdout()
			for _, r := range results {
				mark := "ok"
				switch {
				case !r.Passed && r.Optional:
					mark = "warn"
				case !r.Passed:
					mark = "FAIL"
				}
				fmt.Fprintf(out, "[%-4s] %-18s %s\n", mark, r.Name, r.Detail)
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the MusicBrainz connectivity check")
	return cmd
}
