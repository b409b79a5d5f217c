package output

import (
	"bytes"
	"strings"
	"testing"

	"mcguard/classifier"
	"mcguard/scanner"
	"mcguard/signatures"
)

func sampleResult() *scanner.ScanResult {
	return &scanner.ScanResult{
		Status:           scanner.StatusCompleted,
		ScanTime:         "2026-10-19T10:00:00Z",
		ProcessesScanned: 2,
		Results: []scanner.ProcessScanResult{
			{
				PID:      4242,
				ScanTime: "2026-10-19T10:00:00Z",
				ThreatsFound: []classifier.Classification{{
					File:          `C:\Users\steve\AppData\Horion.dll`,
					Name:          "horion.dll",
					DisplayName:   "Horion.dll",
					Risk:          signatures.RiskDangerous,
					Description:   "Horion hack client",
					DetectionType: classifier.DetectionKnownSignature,
				}},
				TotalModules:      2,
				SuspiciousModules: 1,
				ProcessName:       "javaw.exe",
				ProcessExe:        `C:\Program Files\Java\bin\javaw.exe`,
			},
			{
				PID:          77,
				ScanTime:     "2026-10-19T10:00:00Z",
				ThreatsFound: []classifier.Classification{},
				ProcessName:  "Minecraft.Windows.exe",
				ModuleAccess: scanner.ModuleAccessDenied,
			},
		},
	}
}

func TestRenderCompleted(t *testing.T) {
	want := strings.Join([]string{
		"=== MINECRAFT HACK CLIENT DETECTION REPORT ===",
		"Scan Time: 2026-10-19T10:00:00Z",
		"Processes Scanned: 2",
		"",
		"Process: javaw.exe (PID: 4242)",
		"Total Modules: 2",
		"Threats Found: 1",
		"DETECTED THREATS:",
		"  - horion.dll (DANGEROUS)",
		`    Path: C:\Users\steve\AppData\Horion.dll`,
		"    Description: Horion hack client",
		"",
		reportSeparator,
		"Process: Minecraft.Windows.exe (PID: 77)",
		"Total Modules: 0",
		"Threats Found: 0",
		"No threats detected in this process.",
		reportSeparator,
		"TOTAL THREATS DETECTED: 1",
		"",
	}, "\n")

	if got := Render(sampleResult()); got != want {
		t.Fatalf("unexpected report:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderNoTargets(t *testing.T) {
	r := &scanner.ScanResult{
		Status:   scanner.StatusNoTargetsFound,
		Message:  scanner.NoTargetsMessage,
		ScanTime: "2026-10-19T10:00:00Z",
	}
	var buf bytes.Buffer
	if err := RenderText(&buf, r); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := buf.String(); got != "No Minecraft processes detected\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestReportSeparatorWidth(t *testing.T) {
	if len(reportSeparator) != 50 || strings.Trim(reportSeparator, "-") != "" {
		t.Fatalf("separator should be 50 dashes, got %q", reportSeparator)
	}
}
