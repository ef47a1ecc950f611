package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/config"
	"github.com/papapumpkin/parallax/internal/journal"
	"github.com/papapumpkin/parallax/internal/ui"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the path of the journal the tailer would follow",
	Args:  cobra.NoArgs,
	RunE:  runLatest,
}

func init() {
	rootCmd.AddCommand(latestCmd)
}

func runLatest(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())
	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	if err := journal.CheckDir(cfg.JournalDir); err != nil {
		printer.Error(err.Error())
		return err
	}
	path, err := journal.LatestInDir(cfg.JournalDir)
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
