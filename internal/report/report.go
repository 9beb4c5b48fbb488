package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"pgblast/internal/metrics"
	"pgblast/internal/stats"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	ruleStyle   = lipgloss.NewStyle().Faint(true)
	labelStyle  = lipgloss.NewStyle().Width(26)
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

const ruleWidth = 72

func rule() string {
	return ruleStyle.Render(strings.Repeat("=", ruleWidth))
}

// Render formats the final report the way pgbench prints its results: a
// summary block, a latency table, and one extra section per script when
// the run mixed multiple weighted scripts.
func Render(r metrics.AggregateReport) string {
	var b strings.Builder

	b.WriteString(rule() + "\n")
	b.WriteString(titleStyle.Render("BENCHMARK RESULTS") + "\n")
	b.WriteString(rule() + "\n")

	writeLine(&b, "Run ID", r.RunID)
	writeLine(&b, "Started", r.StartedAt.Format(time.RFC3339))
	writeLine(&b, "Total Duration", fmt.Sprintf("%.2f seconds", r.ElapsedSeconds))
	writeLine(&b, "Total Transactions", fmt.Sprintf("%d", r.TotalTransactions))
	writeLine(&b, "Successful Transactions", fmt.Sprintf("%d", r.SuccessfulTransactions))
	writeLine(&b, "Failed Transactions", fmt.Sprintf("%d", r.FailedTransactions))
	writeLine(&b, "Transactions per Second", fmt.Sprintf("%.2f TPS", r.TPS))

	if !r.Complete() {
		b.WriteString(warnStyle.Render("INCOMPLETE RUN") + "\n")
		writeLine(&b, "Expected Transactions", fmt.Sprintf("%d", r.ExpectedTransactions))
		writeLine(&b, "Missing Workers", fmt.Sprintf("%d", r.MissingWorkers))
		writeLine(&b, "Incomplete Jobs", fmt.Sprintf("%d", r.IncompleteJobs))
	}

	b.WriteString(rule() + "\n")
	writeLatencyTable(&b, r.Latency)

	for _, s := range r.Scripts {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("SCRIPT: "+s.Script) + "\n")
		writeLine(&b, "Transactions", fmt.Sprintf("%d", s.Transactions))
		writeLine(&b, "Failures", fmt.Sprintf("%d", s.Failures))
		writeLatencyTable(&b, s.Latency)
	}

	b.WriteString(rule() + "\n")
	return b.String()
}

func writeLine(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + " " + value + "\n")
}

func writeLatencyTable(b *strings.Builder, l metrics.LatencySummary) {
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-15s %15s", "Metric", "Latency (ms)")) + "\n")
	rows := []struct {
		name  string
		value float64
	}{
		{"Average", l.AvgMs},
		{"StdDev", l.StdDevMs},
		{"Minimum", l.MinMs},
		{"Maximum", l.MaxMs},
		{"P50 (Median)", l.P50Ms},
		{"P95", l.P95Ms},
		{"P99", l.P99Ms},
	}
	for _, row := range rows {
		fmt.Fprintf(b, "%-15s %15.2f\n", row.name, row.value)
	}
}

// Print writes the rendered report to stdout. Logs go to stderr, so the
// report is the only thing on the result stream.
func Print(r metrics.AggregateReport) {
	fmt.Print(Render(r))
}

// ExportJSON writes the full report to path.
func ExportJSON(r metrics.AggregateReport, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ProgressLine renders the one-line live status used in plain mode.
func ProgressLine(snap stats.Snapshot, expected int, elapsed time.Duration) string {
	pct := 0.0
	if expected > 0 {
		pct = float64(snap.Transactions) / float64(expected)
		if pct > 1 {
			pct = 1
		}
	}
	tps := 0.0
	if elapsed.Seconds() > 0 {
		tps = float64(snap.Transactions) / elapsed.Seconds()
	}
	return fmt.Sprintf("\r%s %3.0f%% | %s | TPS: %.1f | OK: %d | Err: %d | p99: %.1fms",
		ProgressBar(pct, 20), pct*100,
		elapsed.Round(time.Second),
		tps, snap.Success, snap.Fail, snap.P99Ms,
	)
}

// ProgressBar draws a fixed-width text progress bar.
func ProgressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}
