package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"tonearm/internal/daemon"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve queued artist lookups against MusicBrainz",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !once {
				return errors.New("resolve requires --once; use `tonearm run` for continuous resolution")
			}
			return ctx.withStores(cmd, func(parent context.Context, s *stores) error {
				runCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				// A running daemon consumes the same queue; two consumers
				// would double the request rate.
				lock, err := daemon.AcquireLock(s.cfg.LockPath())
				if err != nil {
					if errors.Is(err, daemon.ErrAlreadyRunning) {
						return fmt.Errorf("%w: the daemon is already resolving the queue", err)
					}
					return err
				}
				defer lock.Unlock() //nolint:errcheck

				if _, err := s.queue.ResetStaleClaims(runCtx, s.cfg.StaleClaimAge()); err != nil {
					return err
				}
				stats, err := s.resolver().Drain(runCtx)
				writeKeyValues(cmd.OutOrStdout(), [][2]string{
					{"Processed", strconv.FormatInt(stats.Processed, 10)},
					{"Matched locally", strconv.FormatInt(stats.Local, 10)},
					{"Resolved", strconv.FormatInt(stats.Resolved, 10)},
					{"No match", strconv.FormatInt(stats.Bare, 10)},
					{"Retrying", strconv.FormatInt(stats.Retrying, 10)},
					{"Failed", strconv.FormatInt(stats.Failed, 10)},
				})
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Drain the queue and exit")
	return cmd
}
