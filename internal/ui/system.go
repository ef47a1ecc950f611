package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/papapumpkin/parallax/internal/engine"
	"github.com/papapumpkin/parallax/internal/model"
	"github.com/papapumpkin/parallax/internal/surface"
)

// RenderSystem renders sys as a header line followed by one block per body,
// in body id order. Sample points on the targeted body get a distance and
// direction from the player's position.
func RenderSystem(sys *model.System, player model.PlayerContext) string {
	if sys == nil {
		return styleSubtle.Render("no current system") + "\n"
	}
	var sb strings.Builder

	name := sys.Name
	if name == "" {
		name = "unknown system"
	}
	sb.WriteString(styleTitle.Render(name))
	sb.WriteString(styleSubtle.Render(fmt.Sprintf("  #%d", sys.Address)))
	known := len(sys.Bodies)
	if sys.TotalBodies != nil {
		fmt.Fprintf(&sb, "  %s %d/%d", styleLabel.Render("bodies"), known, *sys.TotalBodies)
	} else {
		fmt.Fprintf(&sb, "  %s %d", styleLabel.Render("bodies"), known)
	}
	if sys.JustJumped {
		sb.WriteString("  " + styleNew.Render(iconJumped+" just arrived"))
	}
	sb.WriteString("\n")

	ids := make([]int, 0, len(sys.Bodies))
	for id := range sys.Bodies {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		targeted := player.TargetID != nil && *player.TargetID == id
		var pos *model.Position
		if targeted {
			pos = player.Position
		}
		sb.WriteString(RenderBody(sys.Bodies[id], targeted, pos))
	}
	return sb.String()
}

// RenderBody renders one body and its discoveries. pos, when non-nil, is
// used to give directions to recorded sample points.
func RenderBody(b *model.Body, targeted bool, pos *model.Position) string {
	var sb strings.Builder
	marker := " "
	if targeted {
		marker = styleTarget.Render(iconTarget)
	}
	fmt.Fprintf(&sb, "%s %s", marker, bodyLabel(b))
	if b.BioSignals > 0 {
		sb.WriteString("  " + styleBio.Render(fmt.Sprintf("bio %d", b.BioSignals)))
	}
	if b.GeoSignals > 0 {
		sb.WriteString("  " + styleGeo.Render(fmt.Sprintf("geo %d", b.GeoSignals)))
	}
	sb.WriteString("\n")

	for _, g := range sortedGenera(b) {
		sb.WriteString(genusLine(g, pos))
	}
	for _, c := range sortedCodex(b) {
		marker := " "
		if c.IsNew {
			marker = styleNew.Render(iconNewEntry)
		}
		fmt.Fprintf(&sb, "    %s %s\n", marker, styleGeo.Render(firstNonEmpty(c.Name, c.ID)))
	}
	return sb.String()
}

func bodyLabel(b *model.Body) string {
	name := b.Name
	if name == "" {
		name = fmt.Sprintf("body %d", b.ID)
	}
	parts := []string{styleBodyName.Render(name)}
	if b.Type != "" {
		parts = append(parts, styleLabel.Render(b.Type))
	}
	var flags []string
	if b.Landable {
		flags = append(flags, "landable")
	}
	if b.Scoopable {
		flags = append(flags, "scoopable")
	}
	if b.DistanceFromArrival != nil {
		flags = append(flags, fmt.Sprintf("%.0f ls", *b.DistanceFromArrival))
	}
	if len(flags) > 0 {
		parts = append(parts, styleSubtle.Render("["+strings.Join(flags, ", ")+"]"))
	}
	return strings.Join(parts, " ")
}

func genusLine(g *model.Genus, pos *model.Position) string {
	name := firstNonEmpty(g.Variant, g.Species, g.Name, g.ID)
	style := progressStyle(g.ScannedCount)
	line := fmt.Sprintf("    %s %s %s",
		style.Render(progressIcon(g.ScannedCount)),
		style.Render(fmt.Sprintf("%d/%d", g.ScannedCount, model.MaxScanCount)),
		name)
	if !g.Complete() {
		line += styleSubtle.Render(fmt.Sprintf("  %d m apart", g.MinDistance))
	}
	for _, sample := range []*surface.Coordinates{g.PosFirst, g.PosSecond} {
		if sample == nil {
			continue
		}
		line += "  " + sampleDirection(*sample, g.MinDistance, pos)
	}
	return line + "\n"
}

// sampleDirection describes where a recorded sample lies relative to the
// player, flagging it when the player is still too close to take another.
func sampleDirection(sample surface.Coordinates, minDistance int, pos *model.Position) string {
	course, err := engine.CourseTo(pos, sample)
	if err != nil {
		return styleSubtle.Render(fmt.Sprintf("(%.4f, %.4f)", sample.Latitude, sample.Longitude))
	}
	text := surface.Arrow(course.Relative) + " " + surface.FormatDistance(course.DistanceKM)
	if course.DistanceKM*1000 < float64(minDistance) {
		return styleGeo.Render(text + " too close")
	}
	return styleDone.Render(text)
}

func progressIcon(count int) string {
	switch {
	case count >= model.MaxScanCount:
		return iconDone
	case count > 0:
		return iconWorking
	default:
		return iconWaiting
	}
}

func progressStyle(count int) lipgloss.Style {
	switch {
	case count >= model.MaxScanCount:
		return styleDone
	case count > 0:
		return styleWorking
	default:
		return styleWaiting
	}
}

func sortedGenera(b *model.Body) []*model.Genus {
	out := make([]*model.Genus, 0, len(b.BioFound))
	for _, g := range b.BioFound {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedCodex(b *model.Body) []*model.CodexEntry {
	out := make([]*model.CodexEntry, 0, len(b.GeoFound))
	for _, c := range b.GeoFound {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
