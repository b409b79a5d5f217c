package output

import (
	"fmt"
	"io"
	"strings"

	"mcguard/scanner"
)

const (
	reportTitle     = "=== MINECRAFT HACK CLIENT DETECTION REPORT ==="
	reportSeparator = "--------------------------------------------------"
)

// Render returns the human-readable report for r.
func Render(r *scanner.ScanResult) string {
	var b strings.Builder
	_ = RenderText(&b, r)
	return b.String()
}

// RenderText writes the human-readable report for r to w. A result without
// targets renders as its single informational message.
func RenderText(w io.Writer, r *scanner.ScanResult) error {
	if r.Status == scanner.StatusNoTargetsFound {
		_, err := fmt.Fprintln(w, r.Message)
		return err
	}

	var b strings.Builder
	b.WriteString(reportTitle + "\n")
	fmt.Fprintf(&b, "Scan Time: %s\n", r.ScanTime)
	fmt.Fprintf(&b, "Processes Scanned: %d\n", r.ProcessesScanned)
	b.WriteString("\n")

	for _, pr := range r.Results {
		fmt.Fprintf(&b, "Process: %s (PID: %d)\n", pr.ProcessName, pr.PID)
		fmt.Fprintf(&b, "Total Modules: %d\n", pr.TotalModules)
		fmt.Fprintf(&b, "Threats Found: %d\n", len(pr.ThreatsFound))

		if len(pr.ThreatsFound) > 0 {
			b.WriteString("DETECTED THREATS:\n")
			for _, threat := range pr.ThreatsFound {
				fmt.Fprintf(&b, "  - %s (%s)\n", threat.Name, strings.ToUpper(string(threat.Risk)))
				fmt.Fprintf(&b, "    Path: %s\n", threat.File)
				fmt.Fprintf(&b, "    Description: %s\n", threat.Description)
				b.WriteString("\n")
			}
		} else {
			b.WriteString("No threats detected in this process.\n")
		}
		b.WriteString(reportSeparator + "\n")
	}

	fmt.Fprintf(&b, "TOTAL THREATS DETECTED: %d\n", r.TotalThreats())
	_, err := io.WriteString(w, b.String())
	return err
}
