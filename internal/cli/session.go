package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/foodstand/internal/config"
	"github.com/roach88/foodstand/internal/engine"
	"github.com/roach88/foodstand/internal/mirror"
	"github.com/roach88/foodstand/internal/orders"
	"github.com/roach88/foodstand/internal/store"
)

// session is one short-lived client: the remote document loaded into a
// fresh engine whose loop runs for the duration of a command.
type session struct {
	cfg    config.Config
	engine *engine.Engine
	ledger store.Ledger
	out    *OutputFormatter
}

// loadConfig reads the configuration named by --config.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.Source != "" {
		slog.Debug("config loaded", "source", cfg.Source)
	}
	return cfg, nil
}

// openLedger opens the configured remote ledger. An unconfigured remote
// returns a nil ledger so the engine runs local-only.
func openLedger(ctx context.Context, cfg config.Config) (store.Ledger, error) {
	if !cfg.Configured() {
		slog.Warn("remote ledger not configured; changes will not be saved")
		return nil, nil
	}
	l, err := store.Open(ctx, cfg.Remote.DatabaseURL, store.WithPollInterval(cfg.PollInterval))
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open ledger", err)
	}
	return l, nil
}

func newEngine(l store.Ledger, cfg config.Config) *engine.Engine {
	return engine.New(l,
		engine.WithPath(cfg.Path),
		engine.WithStatusTTL(cfg.StatusTTL),
		engine.WithRefreshInterval(cfg.RefreshInterval),
	)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		Styles:    defaultStyles(),
	}
}

// withSession loads the remote document, runs fn against it and flushes
// whatever fn changed before returning. Output is tinted with the stand's
// theme once the document is loaded.
func withSession(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
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
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.Run(runCtx)
	}()
	defer func() {
		e.Stop()
		<-done
		cancel()
	}()

	if err := e.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load document", err)
	}

	s := &session{cfg: cfg, engine: e, ledger: l, out: newFormatter(opts, cmd)}
	if v, err := e.View(ctx); err == nil {
		s.out.Styles = NewStyles(v.Theme)
	}

	if err := fn(ctx, s); err != nil {
		return err
	}
	if err := e.Flush(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to save document", err)
	}
	return nil
}

// fail prints err in the configured format and returns it with an exit
// code. Validation and confirmation errors are the caller's fault.
func (s *session) fail(err error) error {
	var rerr *engine.RuntimeError
	switch {
	case isValidation(err):
		_ = s.out.Error(CodeValidation, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	case isConfirmation(err):
		_ = s.out.Error(CodeConfirm, "this removes data; pass --yes to confirm", nil)
		return WrapExitError(ExitCommandError, "not confirmed", err)
	case errors.Is(err, mirror.ErrNotFound):
		_ = s.out.Error(CodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "not found", err)
	case errors.As(err, &rerr):
		_ = s.out.Error(CodeLedger, rerr.Error(), nil)
		return WrapExitError(ExitFailure, "ledger error", err)
	default:
		_ = s.out.Error(CodeLedger, err.Error(), nil)
		return WrapExitError(ExitFailure, "command failed", err)
	}
}

// notFound prints a not-found error for what and returns ExitFailure.
func (s *session) notFound(what string) error {
	msg := fmt.Sprintf("%s not found", what)
	_ = s.out.Error(CodeNotFound, msg, nil)
	return NewExitError(ExitFailure, msg)
}

func isValidation(err error) bool {
	return mirror.IsValidationError(err)
}

func isConfirmation(err error) bool {
	return errors.Is(err, orders.ErrConfirmationRequired)
}
