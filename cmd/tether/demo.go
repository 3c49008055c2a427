package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tether-go/tether"
	"github.com/tether-go/tether/internal/demo"
)

func demoCmd() *cobra.Command {
	var (
		addr     string
		interval time.Duration
		dev      bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo stream server",
		Long: `Demo starts an HTTP server that fans one ticker-driven feed out to any
number of websocket clients, each behind its own scope-bound binder.

Endpoints:

  /ws        websocket tick stream; send {"cmd":"pause"} to detach the
             connection's binder and {"cmd":"resume"} to reattach it
  /snapshot  latest feed value as JSON
  /metrics   Prometheus metrics for every binder lifecycle
  /healthz   liveness and connection count`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dev {
				*tether.DevMode = true
				tether.Debug.LogLifecycle = true
				tether.Debug.DetectLeaks = true
			}

			level := slog.LevelInfo
			if dev {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			srv, err := demo.New(demo.Config{
				Addr:      addr,
				TickEvery: interval,
				Logger:    logger,
			})
			if err != nil {
				return err
			}

			printBanner()
			info("demo server listening on http://%s", displayAddr(addr))
			info("stream:   ws://%s/ws", displayAddr(addr))
			info("snapshot: http://%s/snapshot", displayAddr(addr))
			info("metrics:  http://%s/metrics", displayAddr(addr))
			fmt.Println()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil {
				return err
			}
			success("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8777", "listen address")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "feed tick interval")
	cmd.Flags().BoolVar(&dev, "dev", false, "enable dev diagnostics and lifecycle logging")

	return cmd
}

// displayAddr turns a listen address like ":8777" into something clickable.
func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
