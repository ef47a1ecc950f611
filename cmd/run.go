package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/server"
	"github.com/papapumpkin/parallax/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Follow the live journal and print the system on every target change",
	Long: `Tails the newest journal and the status file, keeping the system model and
cache current. The system view is printed at start and whenever the target
changes.

With --serve the reader API and websocket are served as well. Send SIGHUP to
rebuild the cache from every journal without stopping.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("replay", false, "rebuild the cache from every journal before following")
	runCmd.Flags().Bool("serve", false, "also serve the reader API")
	runCmd.Flags().String("listen", "", "reader API address (default from config)")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())
	out := ui.New(cmd.OutOrStdout())

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	s, err := openSession(ctx, printer, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()
	e := s.engine

	if err := prepare(ctx, cmd, s, printer); err != nil {
		return err
	}

	p, err := engine.NewPipeline(e)
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	e.RegisterTargetListener(func(int) {
		out.System(e.SnapshotSystem(), e.SnapshotPlayer())
	})

	srvErr := make(chan error, 1)
	if serve, _ := cmd.Flags().GetBool("serve"); serve {
		srv := newServer(s)
		e.RegisterTargetListener(srv.Hub().NotifyTarget)
		addr := listenAddr(cmd, s)
		printer.Info("serving reader API on " + addr)
		go func() { srvErr <- srv.ListenAndServe(ctx, addr) }()
	}

	printer.Banner()
	out.System(e.SnapshotSystem(), e.SnapshotPlayer())
	printer.Info("following " + s.cfg.JournalDir)

	p.Start(ctx)
	go replayOnHangup(ctx, e, p, printer)

	select {
	case <-ctx.Done():
	case err = <-srvErr:
		if err != nil {
			printer.Error(err.Error())
		}
		cancel()
	}
	p.Wait()
	return err
}

// prepare brings the engine up to date before the live workers start: a
// full replay with --replay, otherwise a restore from the newest journal.
func prepare(ctx context.Context, cmd *cobra.Command, s *session, printer *ui.Printer) error {
	if replay, _ := cmd.Flags().GetBool("replay"); replay {
		return runReplay(ctx, s.engine, nil, printer)
	}
	res, err := s.engine.Restore(ctx)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	if s.cfg.Verbose {
		printer.Info(fmt.Sprintf("restored %d lines from the newest journal", res.Applied))
	}
	return nil
}

// runReplay rebuilds the cache and prints a summary. p may be nil.
func runReplay(ctx context.Context, e *engine.Engine, p engine.Pauser, printer *ui.Printer) error {
	start := time.Now()
	res, err := engine.NewHistorian(e, p).Replay(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			printer.Error(err.Error())
		}
		return err
	}
	printer.ReplayDone(res, time.Since(start))
	return nil
}

// replayOnHangup rebuilds the cache each time the process receives SIGHUP,
// pausing the live workers while it runs.
func replayOnHangup(ctx context.Context, e *engine.Engine, p *engine.Pipeline, printer *ui.Printer) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			printer.Info("rebuilding cache...")
			_ = runReplay(ctx, e, p, printer)
		}
	}
}

func newServer(s *session) *server.Server {
	opts := []server.Option{server.WithLogger(os.Stderr)}
	if len(s.cfg.AllowOrigins) > 0 {
		opts = append(opts, server.WithAllowOrigins(s.cfg.AllowOrigins...))
	}
	return server.New(s.engine, opts...)
}

func listenAddr(cmd *cobra.Command, s *session) string {
	if addr, _ := cmd.Flags().GetString("listen"); addr != "" {
		return addr
	}
	return s.cfg.Listen
}
