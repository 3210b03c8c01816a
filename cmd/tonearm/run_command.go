package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tonearm/internal/daemon"
	"tonearm/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scan flow and resolver loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStores(cmd, func(parent context.Context, s *stores) error {
				signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				d, err := daemon.New(daemon.Deps{
					Queue:    s.queue,
					Scanner:  s.scanner(),
					Grouper:  s.grouper(),
					Resolver: s.resolver(),
				}, daemon.OptionsFromConfig(s.cfg), s.logger)
				if err != nil {
					return fmt.Errorf("create daemon: %w", err)
				}
				if err := d.Start(signalCtx); err != nil {
					return err
				}
				defer d.Stop()

				<-signalCtx.Done()
				status := d.Status(context.WithoutCancel(signalCtx))
				s.logger.Info("tonearm daemon shutting down",
					logging.Int("scan_runs", status.ScanRuns),
					logging.Int64("resolved", status.Resolver.Resolved),
					logging.Int("pending_jobs", status.Queue.Pending),
				)
				return nil
			})
		},
	}
}
