// Package ui renders engine state for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/ledger"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/telemetry"
)

// Printer writes styled output for the CLI.
type Printer struct {
	w io.Writer
}

// New returns a printer writing to w. Nil defaults to os.Stderr.
func New(w io.Writer) *Printer {
	if w == nil {
		w = os.Stderr
	}
	return &Printer{w: w}
}

// Banner prints the program name.
func (p *Printer) Banner() {
	fmt.Fprintln(p.w, styleTitle.Render("PARALLAX")+"  "+styleSubtle.Render("surface survey companion"))
	fmt.Fprintln(p.w)
}

// Info prints a de-emphasized message.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, styleSubtle.Render(msg))
}

// Error prints msg with an error prefix.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", styleError.Render("error:"), msg)
}

// System prints the full system view.
func (p *Printer) System(sys *model.System, player model.PlayerContext) {
	fmt.Fprint(p.w, RenderSystem(sys, player))
}

// Target prints a one-line summary of the player's target.
func (p *Printer) Target(b *model.Body) {
	if b == nil {
		p.Info("no target")
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", styleTarget.Render(iconTarget+" target"), bodyLabel(b))
}

// ReplayDone prints a replay summary.
func (p *Printer) ReplayDone(res engine.Result, elapsed time.Duration) {
	fmt.Fprintf(p.w, "%s %d journal%s, %d lines applied",
		styleDone.Render(iconDone+" replay complete"), res.Files, pluralS(res.Files), res.Applied)
	if res.Skipped > 0 {
		fmt.Fprintf(p.w, ", %d skipped", res.Skipped)
	}
	fmt.Fprintf(p.w, " %s\n", styleSubtle.Render("("+formatDuration(elapsed)+")"))
}

// Activity prints one activity log entry.
func (p *Printer) Activity(evt telemetry.Event) {
	fmt.Fprintln(p.w, ActivityLine(evt))
}

// ActivityLine formats an activity log entry as a single line.
func ActivityLine(evt telemetry.Event) string {
	var sb strings.Builder
	sb.WriteString(styleSubtle.Render(evt.Timestamp.UTC().Format("15:04:05")))
	sb.WriteString(" ")
	sb.WriteString(styleLabel.Render(fmt.Sprintf("%-10s", evt.Kind)))
	if evt.System != 0 {
		fmt.Fprintf(&sb, " sys=%d", evt.System)
	}
	if evt.Body != nil {
		fmt.Fprintf(&sb, " body=%d", *evt.Body)
	}
	if evt.Name != "" {
		sb.WriteString(" " + styleBodyName.Render(evt.Name))
	}
	if evt.Data != nil {
		sb.WriteString(" " + styleSubtle.Render(fmt.Sprint(evt.Data)))
	}
	return sb.String()
}

// Organics prints ledger organic rows.
func (p *Printer) Organics(rows []ledger.Organic) {
	if len(rows) == 0 {
		p.Info("no organic records")
		return
	}
	for _, o := range rows {
		name := firstNonEmpty(o.Variant, o.Species, o.Genus, o.GenusID)
		fmt.Fprintf(p.w, "%s %d/%d  %-12d body %-3d %s\n",
			progressIcon(o.ScannedCount), o.ScannedCount, model.MaxScanCount,
			o.SystemAddress, o.BodyID, name)
	}
}

// Codex prints ledger codex rows.
func (p *Printer) Codex(rows []ledger.Codex) {
	if len(rows) == 0 {
		p.Info("no codex records")
		return
	}
	for _, c := range rows {
		marker := " "
		if c.IsNew {
			marker = styleNew.Render(iconNewEntry)
		}
		fmt.Fprintf(p.w, "%s %-8s %-12d body %-3d %s\n",
			marker, c.Category, c.SystemAddress, c.BodyID, firstNonEmpty(c.Name, c.CodexID))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
