// Package report renders a finished scenario run for terminals and tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/scenario"
)

// Format selects the report encoding.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// ParseFormat maps "text" or "json" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown report format %q", s)
	}
}

// barWidth is the width of the longest history bar.
const barWidth = 40

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF"))

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
)

// Write renders res to w in the given format.
func Write(w io.Writer, res *scenario.Result, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := io.WriteString(w, Render(res)+"\n")
	return err
}

// Render formats res as a styled multi-section text report.
func Render(res *scenario.Result) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Simulation Report: %s", res.ScenarioName)))
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		statsBoxStyle.Render(graphSection(res)),
		statsBoxStyle.Render(outcomeSection(res)),
	))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Infection timeline"))
	b.WriteString("\n")
	b.WriteString(timeline(res.History, res.FinalInfected))

	if len(res.TopSpreaders) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Top spreaders (out-degree)"))
		b.WriteString("\n")
		for i, rn := range res.TopSpreaders {
			fmt.Fprintf(&b, "%2d. node %-5d %-14s %.4f\n", i+1, rn.Node.ID, rn.Node.DeviceType, rn.Score)
		}
	}

	if len(res.Invariants) > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("Invariants"))
		b.WriteString("\n")
		for _, inv := range res.Invariants {
			status := successStyle.Render("[PASS]")
			if !inv.Passed {
				status = errorStyle.Render("[FAIL]")
			}
			fmt.Fprintf(&b, "%s %s: Expected %s, Got %s\n", status, inv.Metric, inv.Expected, inv.Actual)
		}
	}

	b.WriteString("\n")
	if res.Success {
		b.WriteString(successStyle.Render("✓ scenario passed"))
	} else {
		b.WriteString(errorStyle.Render("✗ scenario failed"))
	}
	return b.String()
}

func graphSection(res *scenario.Result) string {
	lines := []string{
		headerStyle.Render("Graph"),
		row("run", res.RunID),
		row("seed", fmt.Sprint(res.Seed)),
		row("nodes", fmt.Sprint(res.Summary.Nodes)),
		row("edges", fmt.Sprint(res.Summary.Edges)),
		row("largest component", fmt.Sprint(res.LargestComponent)),
	}

	for _, dt := range iotgraph.DeviceTypes {
		if k := res.Summary.DeviceCounts[dt]; k > 0 {
			lines = append(lines, row("  "+dt.String(), fmt.Sprint(k)))
		}
	}
	return strings.Join(lines, "\n")
}

func outcomeSection(res *scenario.Result) string {
	return strings.Join([]string{
		headerStyle.Render("Outcome"),
		row("seeds", fmt.Sprint(res.Seeds)),
		row("ticks", fmt.Sprint(len(res.History))),
		row("peak", fmt.Sprintf("%d (tick %d)", res.Peak, res.PeakTick)),
		row("final infected", fmt.Sprint(res.FinalInfected)),
		row("ever infected", fmt.Sprint(res.EverInfected)),
		row("attack rate", fmt.Sprintf("%.4f", res.AttackRate)),
		row("blast radius", fmt.Sprintf("%d (%.4f)", res.BlastRadius, res.BlastRadiusFraction)),
		row("duration", res.Duration.String()),
	}, "\n")
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-18s", label)) + " " + value
}

// timeline draws one bar per tick plus the final count, scaled to the peak.
func timeline(history []int, final int) string {
	counts := append(append([]int(nil), history...), final)
	maxCount := 0
	for _, k := range counts {
		maxCount = max(maxCount, k)
	}

	var b strings.Builder
	for t, k := range counts {
		label := fmt.Sprintf("t=%-4d", t)
		if t == len(history) {
			label = "final "
		}
		n := 0
		if maxCount > 0 {
			n = k * barWidth / maxCount
		}
		fmt.Fprintf(&b, "%s %5d %s\n", labelStyle.Render(label), k, barStyle.Render(strings.Repeat("█", n)))
	}
	return b.String()
}
