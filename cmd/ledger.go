package cmd

import (
	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/config"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/ui"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "List organic samples and codex entries recorded across systems",
}

var ledgerOrganicsCmd = &cobra.Command{
	Use:   "organics",
	Short: "List sampled genera",
	Args:  cobra.NoArgs,
	RunE:  runLedgerOrganics,
}

var ledgerCodexCmd = &cobra.Command{
	Use:   "codex",
	Short: "List codex entries",
	Args:  cobra.NoArgs,
	RunE:  runLedgerCodex,
}

func init() {
	ledgerCmd.PersistentFlags().Int64("system", 0, "restrict to one system address")
	ledgerCmd.AddCommand(ledgerOrganicsCmd)
	ledgerCmd.AddCommand(ledgerCodexCmd)
	rootCmd.AddCommand(ledgerCmd)
}

func runLedgerOrganics(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(l *ledger.SQLite, addr int64) error {
		rows, err := l.Organics(cmd.Context(), addr)
		if err != nil {
			return err
		}
		ui.New(cmd.OutOrStdout()).Organics(rows)
		return nil
	})
}

func runLedgerCodex(cmd *cobra.Command, _ []string) error {
	return withLedger(cmd, func(l *ledger.SQLite, addr int64) error {
		rows, err := l.Codex(cmd.Context(), addr)
		if err != nil {
			return err
		}
		ui.New(cmd.OutOrStdout()).Codex(rows)
		return nil
	})
}

// withLedger opens the configured ledger without starting an engine.
func withLedger(cmd *cobra.Command, fn func(l *ledger.SQLite, addr int64) error) error {
	printer := ui.New(cmd.ErrOrStderr())
	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	l, err := ledger.Open(cmd.Context(), cfg.LedgerPath)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	defer l.Close()

	addr, _ := cmd.Flags().GetInt64("system")
	if err := fn(l, addr); err != nil {
		printer.Error(err.Error())
		return err
	}
	return nil
}
