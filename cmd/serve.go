package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osi4iot/hookrelay/pkg/hookrelay"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer dispatch and compose requests over NATS",
	Long: `Serve subscribes to the configured NATS subject in a queue group and
answers dispatch and compose requests until interrupted. With --watch the
hooks and command directories are reloaded when they change.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEngine()
		if err != nil {
			return err
		}
		defer cleanup()

		cfg := e.Config()
		srv, err := hookrelay.NewServer(cfg.NATS, e, e.Logger())
		if err != nil {
			return err
		}
		defer srv.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Serve(ctx) })
		if cfg.Watch || serveWatch {
			g.Go(func() error { return e.Watch(ctx) })
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	flags := serveCmd.Flags()
	flags.BoolVar(&serveWatch, "watch", false, "reload hooks and commands when their files change")
	flags.String("nats-url", "", "NATS server URL (default nats://127.0.0.1:4222)")
	flags.String("subject", "", "subject to answer requests on")

	bindFlags(flags, map[string]string{
		"nats.url":     "nats-url",
		"nats.subject": "subject",
	})
}
