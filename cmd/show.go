package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/papapumpkin/parallax/internal/config"
	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current system",
	Long: `Restores the current system from the newest journal and the cache, then
prints it. With --system, the cached snapshot of that system address is
printed instead. Nothing is written back to the cache or the ledger.`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	showCmd.Flags().String("format", "text", "output format: text, json, or yaml")
	showCmd.Flags().Int64("system", 0, "system address to show from the cache")
	rootCmd.AddCommand(showCmd)
}

// snapshotDoc is the structured form of show's output.
type snapshotDoc struct {
	System *model.System       `json:"system" yaml:"system"`
	Player model.PlayerContext `json:"player" yaml:"player,omitempty"`
}

func runShow(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return err
	}
	e, err := engine.New(engineConfig(cfg), engine.WithLogger(cmd.ErrOrStderr()), engine.WithReadOnly())
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	var (
		sys    *model.System
		player model.PlayerContext
	)
	if addr, _ := cmd.Flags().GetInt64("system"); addr != 0 {
		cached, found, err := e.Store().LoadSystem(addr)
		if err != nil {
			printer.Error(err.Error())
			return err
		}
		if !found {
			return fmt.Errorf("no cached snapshot for system %d", addr)
		}
		sys = cached
	} else {
		if _, err := e.Restore(ctx); err != nil {
			printer.Error(err.Error())
			return err
		}
		sys, player = e.SnapshotSystem(), e.SnapshotPlayer()
		player.System = nil
	}
	return writeSnapshot(cmd.OutOrStdout(), format, sys, player)
}

func checkFormat(format string) error {
	switch format {
	case "text", "json", "yaml":
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, json, or yaml)", format)
	}
}

// writeSnapshot renders sys in the given format.
func writeSnapshot(w io.Writer, format string, sys *model.System, player model.PlayerContext) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshotDoc{System: sys, Player: player})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(snapshotDoc{System: sys, Player: player}); err != nil {
			return fmt.Errorf("show: %w", err)
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, ui.RenderSystem(sys, player))
		return err
	}
}
