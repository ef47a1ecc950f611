package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/ui"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the system cache from every journal",
	Long: `Wipes the system snapshots and re-applies every journal in modification-time
order. Replayed events do not move the last-processed timestamp, so a later
run picks up where the live session left off.`,
	Args: cobra.NoArgs,
	RunE: runReplayCmd,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplayCmd(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	s, err := openSession(ctx, printer, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	return runReplay(ctx, s.engine, nil, printer)
}
