package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/papapumpkin/parallax/internal/config"
	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/telemetry"
	"github.com/papapumpkin/parallax/internal/ui"
)

// session is an engine together with the collaborators it was built with.
type session struct {
	cfg     config.Config
	engine  *engine.Engine
	ledger  *ledger.SQLite
	emitter *telemetry.Emitter
}

// openSession loads configuration and builds the engine with its ledger and
// activity log attached. Failures are reported through printer.
func openSession(ctx context.Context, printer *ui.Printer, logger io.Writer) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return nil, err
	}

	s := &session{cfg: cfg}
	s.ledger, err = ledger.Open(ctx, cfg.LedgerPath)
	if err != nil {
		printer.Error(fmt.Sprintf("ledger unavailable: %v", err))
		return nil, err
	}
	s.emitter, err = telemetry.NewEmitter(cfg.TelemetryPath)
	if err != nil {
		s.Close()
		printer.Error(fmt.Sprintf("activity log unavailable: %v", err))
		return nil, err
	}

	s.engine, err = engine.New(engineConfig(cfg),
		engine.WithLogger(logger),
		engine.WithRecorder(s.ledger),
		engine.WithTelemetry(s.emitter),
	)
	if err != nil {
		s.Close()
		printer.Error(err.Error())
		return nil, err
	}
	return s, nil
}

// engineConfig maps the loaded settings onto the engine's configuration.
func engineConfig(cfg config.Config) engine.Config {
	return engine.Config{
		JournalDir:     cfg.JournalDir,
		CacheDir:       cfg.CacheDir,
		StatusFile:     cfg.StatusFile,
		TailInterval:   cfg.TailInterval,
		StatusInterval: cfg.StatusInterval,
		LineBuffer:     cfg.LineBuffer,
	}
}

// Close releases the ledger and the activity log.
func (s *session) Close() {
	if s.emitter != nil {
		_ = s.emitter.Close()
	}
	if s.ledger != nil {
		_ = s.ledger.Close()
	}
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		printer.Info("\nshutting down...")
		cancel()
	}()
	return ctx, cancel
}
