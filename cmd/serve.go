package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Follow the live journal and serve snapshots over HTTP",
	Long: `Runs the live workers like run, without the terminal view, and serves the
reader API:

  GET /api/health
  GET /api/system
  GET /api/bodies
  GET /api/bodies/:id
  GET /api/target
  GET /api/player
  GET /api/distance?lat=&lon=
  GET /ws                      target changes as {"type":"target",...}`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	s, err := openSession(ctx, printer, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.engine.Restore(ctx); err != nil {
		printer.Error(err.Error())
		return err
	}
	p, err := engine.NewPipeline(s.engine)
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	srv := newServer(s)
	s.engine.RegisterTargetListener(srv.Hub().NotifyTarget)

	p.Start(ctx)
	defer p.Wait()

	addr := listenAddr(cmd, s)
	printer.Info("serving reader API on " + addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		printer.Error(err.Error())
		cancel()
		return err
	}
	return nil
}
