// Package report delivers NodeStats snapshots to reporting sinks and
// renders the final report.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"surge/internal/stats"
)

// FormatText writes a snapshot in human-readable form.
func FormatText(w io.Writer, node *stats.NodeStats) {
	if node.AllOkCount+node.AllFailCount == 0 {
		fmt.Fprintln(w, "No step outcomes recorded")
		return
	}

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Surge - Load Test Results")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintf(w, "Session:  %s\n", node.SessionID)
	fmt.Fprintf(w, "OK:       %s\n", formatNumber(node.AllOkCount))
	fmt.Fprintf(w, "Failed:   %s\n", formatNumber(node.AllFailCount))
	fmt.Fprintf(w, "Data:     %.2f MB\n", node.AllDataMB)

	for _, sc := range node.Scenarios {
		fmt.Fprintln(w, "")
		fmt.Fprintf(w, "Scenario %q (executed %v)\n", sc.Name, sc.Duration.Round(time.Millisecond))
		for _, step := range sc.Steps {
			fmt.Fprintf(w, "  %-20s ok=%s fail=%s  min=%s mean=%s max=%s p95=%s  rps=%.1f  data=%.2fMB\n",
				step.StepName,
				formatNumber(step.OkCount), formatNumber(step.FailCount),
				FormatDuration(step.Min), FormatDuration(step.Mean),
				FormatDuration(step.Max), FormatDuration(step.P95),
				step.RPS, step.AllDataMB)
		}
	}
}

// FormatJSON writes a snapshot as indented JSON.
func FormatJSON(w io.Writer, node *stats.NodeStats) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(node) // stdout errors are unrecoverable
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}
