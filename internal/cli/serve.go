package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a client with the HTTP and websocket API",
		Long: `Start one long-lived client: load the shared document, subscribe to
its changes and serve the POS, kitchen and admin API.

Example:
  foodstand serve
  foodstand serve --listen :9000 --verbose`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationLogLevel: "info"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	if l != nil {
		defer func() {
			if closeErr := l.Close(); closeErr != nil {
				slog.Error("error closing ledger", "error", closeErr)
			}
		}()
	}

	e := newEngine(l, cfg)
	engineDone := make(chan error, 1)
	go func() {
		engineDone <- e.Run(ctx)
	}()

	if err := e.Load(ctx); err != nil {
		// The stand keeps working on defaults; the status bar shows the failure.
		slog.Error("initial load failed; continuing with local state", "error", err)
	}
	if err := e.Subscribe(ctx); err != nil {
		cancel()
		<-engineDone
		return WrapExitError(ExitFailure, "failed to subscribe", err)
	}

	srv := server.New(e, cfg)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s (client %s)\n", cfg.Path, cfg.Listen, e.ClientID())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	serveErr := srv.Run(ctx)
	cancel()
	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("engine error", "error", err)
	}
	if serveErr != nil {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}

	slog.Info("stopped gracefully")
	return nil
}
