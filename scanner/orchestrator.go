package scanner

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"mcguard/classifier"
	"mcguard/logger"
	"mcguard/signatures"
	"mcguard/systeminfo"
	"mcguard/tracing"
	"mcguard/utils"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"
)

type ProcessLocator interface {
	FindTargetProcesses(ctx context.Context) ([]systeminfo.ProcessInfo, error)
}

type ModuleLister interface {
	ListModules(ctx context.Context, pid int32) ([]string, error)
}

type ModuleClassifier interface {
	Classify(path string) (classifier.Classification, bool)
}

type Options struct {
	Ignore                  *utils.IgnoreMatcher
	MaxInspectionsPerSecond int
	Progress                bool
	Now                     func() time.Time
}

// Scanner drives one pass of process discovery, module enumeration and
// classification. It runs sequentially on the calling goroutine.
type Scanner struct {
	locator    ProcessLocator
	modules    ModuleLister
	classifier ModuleClassifier
	ignore     *utils.IgnoreMatcher
	limiter    *rate.Limiter
	progress   bool
	now        func() time.Time

	// inspections counts processes and modules examined so far.
	inspections atomic.Int64
}

func New(locator ProcessLocator, modules ModuleLister, cls ModuleClassifier, opts Options) *Scanner {
	s := &Scanner{
		locator:    locator,
		modules:    modules,
		classifier: cls,
		ignore:     opts.Ignore,
		progress:   opts.Progress,
		now:        opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if opts.MaxInspectionsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.MaxInspectionsPerSecond), 1)
	}
	return s
}

// Progress reports how many processes and modules have been examined. It is
// safe to call from other goroutines while Run is in progress.
func (s *Scanner) Progress() int64 {
	return s.inspections.Load()
}

// Run performs a full scan. Failures to inspect a process or module are
// absorbed and never abort the scan; the only error returned is the
// context's, in which case the partial result is discarded.
func (s *Scanner) Run(ctx context.Context) (*ScanResult, error) {
	ctx, endTask := tracing.StartTask(ctx, "full_scan")
	defer endTask()

	procs, err := s.locator.FindTargetProcesses(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warnf("Process enumeration failed: %v", err)
		procs = nil
	}

	if len(procs) == 0 {
		logger.Info("No target processes found")
		return &ScanResult{
			Status:   StatusNoTargetsFound,
			Message:  NoTargetsMessage,
			ScanTime: s.timestamp(),
		}, nil
	}

	result := &ScanResult{
		Status:           StatusCompleted,
		ScanTime:         s.timestamp(),
		ProcessesScanned: len(procs),
		Results:          make([]ProcessScanResult, 0, len(procs)),
	}
	logger.Infof("Scanning %d target process(es)", len(procs))

	bar := progressbar.NewOptions(len(procs),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Scanning processes"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetVisibility(s.progress && progressVisible()),
		progressbar.OptionFullWidth(),
	)
	defer func() { _ = bar.Finish() }()

	for _, proc := range procs {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		endRegion := tracing.StartRegion(ctx, "scan_process")
		result.Results = append(result.Results, s.scanProcess(ctx, proc))
		endRegion()
		_ = bar.Add(1)
	}

	logger.Infof("Scan completed: %d threat(s) across %d process(es)", result.TotalThreats(), len(result.Results))
	return result, nil
}

func (s *Scanner) scanProcess(ctx context.Context, proc systeminfo.ProcessInfo) ProcessScanResult {
	res := ProcessScanResult{
		PID:          proc.PID,
		ScanTime:     s.timestamp(),
		ThreatsFound: []classifier.Classification{},
		ProcessName:  proc.Name,
		ProcessExe:   proc.Exe,
	}
	tracing.Log(ctx, "process", proc.Name)

	modules, err := s.modules.ListModules(ctx, proc.PID)
	if err != nil {
		res.ModuleAccess = moduleAccessFor(err)
		logger.Debugf("No modules for %s (pid %d): %v", proc.Name, proc.PID, err)
	}
	res.TotalModules = len(modules)
	s.inspections.Add(1)

	for _, path := range modules {
		s.inspections.Add(1)
		if s.ignore.Ignored(path) {
			logger.Debugf("Ignoring module %s", path)
			continue
		}
		c, ok := s.classifier.Classify(path)
		if !ok {
			continue
		}
		res.ThreatsFound = append(res.ThreatsFound, c)
		logger.WithFields(map[string]interface{}{
			"pid":       proc.PID,
			"module":    c.Name,
			"risk":      c.Risk,
			"detection": c.DetectionType,
		}).Warn("Flagged module")
	}
	res.SuspiciousModules = countSuspicious(res.ThreatsFound)
	return res
}

func countSuspicious(threats []classifier.Classification) int {
	n := 0
	for _, c := range threats {
		if c.Risk == signatures.RiskSuspicious || c.Risk == signatures.RiskDangerous {
			n++
		}
	}
	return n
}

func moduleAccessFor(err error) ModuleAccess {
	switch {
	case errors.Is(err, systeminfo.ErrAccessDenied):
		return ModuleAccessDenied
	case errors.Is(err, systeminfo.ErrProcessGone):
		return ModuleAccessProcessExited
	default:
		return ModuleAccessUnavailable
	}
}

func (s *Scanner) timestamp() string {
	return s.now().Format(time.RFC3339)
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("MCGUARD_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
