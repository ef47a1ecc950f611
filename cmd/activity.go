package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papapumpkin/parallax/internal/config"
	"github.com/papapumpkin/parallax/internal/telemetry"
	"github.com/papapumpkin/parallax/internal/ui"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "View the JSONL activity log",
	Long: `Reads and formats the activity log written while the journal is followed.

With --follow (-f), watches the file for new events (like tail -f).`,
	Args: cobra.NoArgs,
	RunE: runActivity,
}

func init() {
	activityCmd.Flags().BoolP("follow", "f", false, "follow the file for new events")
	activityCmd.Flags().String("kind", "", "only show events of this kind")
	rootCmd.AddCommand(activityCmd)
}

func runActivity(cmd *cobra.Command, _ []string) error {
	printer := ui.New(cmd.ErrOrStderr())
	follow, _ := cmd.Flags().GetBool("follow")
	kind, _ := cmd.Flags().GetString("kind")

	cfg, err := config.Load()
	if err != nil {
		printer.Error(err.Error())
		return err
	}

	f, err := os.Open(cfg.TelemetryPath)
	if err != nil {
		return fmt.Errorf("activity: open %s: %w", cfg.TelemetryPath, err)
	}
	defer f.Close()

	er := &eventReader{r: bufio.NewReader(f), out: ui.New(cmd.OutOrStdout()), kind: kind}
	if err := er.drain(); err != nil {
		return fmt.Errorf("activity: read %s: %w", cfg.TelemetryPath, err)
	}

	if !follow {
		return nil
	}

	ctx, cancel := setupSignalContext(printer)
	defer cancel()
	return tailFollow(ctx, er, cfg.TelemetryPath)
}

// eventReader prints activity log lines as they become complete.
type eventReader struct {
	r       *bufio.Reader
	partial strings.Builder
	out     *ui.Printer
	kind    string // empty prints every kind
}

// drain prints every complete line available. A trailing partial line is
// held until the rest of it is written.
func (er *eventReader) drain() error {
	for {
		chunk, err := er.r.ReadString('\n')
		er.partial.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line := strings.TrimSpace(er.partial.String())
		er.partial.Reset()
		printEvent(er.out, line, er.kind)
	}
}

// tailFollow watches the file for new data using fsnotify and prints new events.
func tailFollow(ctx context.Context, er *eventReader, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("activity: create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("activity: watch %s: %w", path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			if err := er.drain(); err != nil {
				return fmt.Errorf("activity: read %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			er.out.Error(err.Error())
		}
	}
}

// printEvent decodes a JSONL line and prints it, skipping events of other
// kinds when kind is set.
func printEvent(out *ui.Printer, line, kind string) {
	if line == "" {
		return
	}
	evt, err := telemetry.Decode([]byte(line))
	if err != nil {
		out.Info("??? " + line)
		return
	}
	if kind != "" && evt.Kind != kind {
		return
	}
	out.Activity(evt)
}
