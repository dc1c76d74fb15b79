package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Veraticus/p300-cit/internal/model"
	"github.com/Veraticus/p300-cit/internal/sequence"
	"github.com/charmbracelet/lipgloss"
)

// LabelStyle returns the style used to print a verdict.
func LabelStyle(label model.Label) lipgloss.Style {
	switch label {
	case model.LabelGuilty:
		return ErrorStyle.Bold(true)
	case model.LabelInnocent:
		return SuccessStyle.Bold(true)
	default:
		return WarningStyle
	}
}

// RenderTable lays out rows under a header with left-aligned columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	header := make([]string, len(headers))
	for i, h := range headers {
		header[i] = TableCellStyle.Render(pad(h, widths[i]))
	}
	b.WriteString(TableHeaderStyle.Render(strings.Join(header, "")))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			w := 0
			if i < len(widths) {
				w = widths[i]
			}
			cells[i] = TableCellStyle.Render(pad(cell, w))
		}
		b.WriteString(strings.Join(cells, ""))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// RenderResult formats a classification run: the verdict followed by the
// per-channel table.
func RenderResult(result *model.ClassificationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s Verdict: %s\n", ChartIcon, LabelStyle(result.Label).Render(strings.ToUpper(string(result.Label))))
	fmt.Fprintf(&b, "  Confidence: %.1f%%\n", result.Confidence*100)
	if result.MaxChannel != "" {
		fmt.Fprintf(&b, "  Strongest channel: %s (p = %.3f)\n", result.MaxChannel, result.MaxProportion)
	}
	if result.Reason != "" {
		fmt.Fprintf(&b, "  %s\n", SubtleStyle.Render(result.Reason))
	}
	fmt.Fprintf(&b, "  Metric: %s, aggregation: %s, %d iterations, thresholds %.2f / %.2f\n\n",
		result.Metric, result.Aggregation, result.Iterations, result.InnocentThreshold, result.GuiltyThreshold)

	rows := make([][]string, 0, len(result.Channels))
	for _, ch := range result.Channels {
		proportion := "-"
		if ch.Proportion != nil {
			proportion = fmt.Sprintf("%.3f", *ch.Proportion)
		}
		counts := fmt.Sprintf("%d/%d", ch.NProbe, ch.NIrrelevant)
		if ch.NTarget > 0 {
			counts += fmt.Sprintf("/%d", ch.NTarget)
		}
		rows = append(rows, []string{
			ch.Channel,
			proportion,
			LabelStyle(ch.Label).Render(string(ch.Label)),
			fmt.Sprintf("%.1f%%", ch.Confidence*100),
			counts,
			ch.Reason,
		})
	}
	b.WriteString(RenderTable([]string{"Channel", "p", "Label", "Confidence", "Epochs", "Note"}, rows))

	return RenderBox("Classification Result", b.String())
}

// RenderSummary formats the distribution of a generated sequence.
func RenderSummary(participant model.Participant, s sequence.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "  Participant: %s, session %s", participant.ID, participant.Session)
	if participant.Condition != "" {
		fmt.Fprintf(&b, " (%s)", participant.Condition)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Trials: %d in %d blocks\n", s.Total, len(s.Blocks))
	fmt.Fprintf(&b, "  S1: %d probe, %d irrelevant\n", s.Probe, s.Irrelevant)
	fmt.Fprintf(&b, "  S2: %d targets (%.1f%%), %d non-targets\n", s.Targets, s.TargetFraction()*100, s.Nontargets)
	fmt.Fprintf(&b, "  Closest repeat of an object: %d trials\n\n", s.MinObjectGap)

	objects := sortedKeys(s.Objects)
	rows := make([][]string, 0, len(objects))
	for _, name := range objects {
		rows = append(rows, []string{name, fmt.Sprintf("%d", s.Objects[name])})
	}
	b.WriteString(RenderTable([]string{"Object", "Trials"}, rows))
	b.WriteString("\n\n")

	rows = rows[:0]
	for _, blk := range s.Blocks {
		rows = append(rows, []string{
			fmt.Sprintf("%d", blk.Index),
			fmt.Sprintf("%d", blk.Trials),
			fmt.Sprintf("%d", blk.Probe),
			fmt.Sprintf("%d", blk.Irrelevant),
			fmt.Sprintf("%d", blk.Targets),
		})
	}
	b.WriteString(RenderTable([]string{"Block", "Trials", "Probe", "Irrelevant", "Targets"}, rows))

	return RenderBox("Trial Sequence", b.String())
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
