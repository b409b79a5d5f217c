package scanner

import "mcguard/classifier"

type Status string

const (
	StatusNoTargetsFound Status = "no_minecraft_found"
	StatusCompleted      Status = "completed"
)

const NoTargetsMessage = "No Minecraft processes detected"

// ModuleAccess records why a process contributed no modules. It is empty
// when module enumeration succeeded.
type ModuleAccess string

const (
	ModuleAccessDenied        ModuleAccess = "access_denied"
	ModuleAccessProcessExited ModuleAccess = "process_exited"
	ModuleAccessUnavailable   ModuleAccess = "unavailable"
)

type ProcessScanResult struct {
	PID               int32                       `json:"pid"`
	ScanTime          string                      `json:"scan_time"`
	ThreatsFound      []classifier.Classification `json:"threats_found"`
	TotalModules      int                         `json:"total_modules"`
	SuspiciousModules int                         `json:"suspicious_modules"`
	ProcessName       string                      `json:"process_name"`
	ProcessExe        string                      `json:"process_exe"`
	ModuleAccess      ModuleAccess                `json:"module_access,omitempty"`
}

// ScanResult is the root of a scan report. Message is set only for
// StatusNoTargetsFound; ProcessesScanned and Results only for StatusCompleted.
type ScanResult struct {
	Status           Status              `json:"status"`
	Message          string              `json:"message,omitempty"`
	ScanTime         string              `json:"scan_time"`
	ProcessesScanned int                 `json:"processes_scanned,omitempty,omitzero"`
	Results          []ProcessScanResult `json:"results,omitempty,omitzero"`
}

// TotalThreats sums the classifications of every scanned process.
func (r *ScanResult) TotalThreats() int {
	if r == nil {
		return 0
	}
	total := 0
	for i := range r.Results {
		total += len(r.Results[i].ThreatsFound)
	}
	return total
}
