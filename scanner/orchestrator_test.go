package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mcguard/classifier"
	"mcguard/config"
	"mcguard/logger"
	"mcguard/signatures"
	"mcguard/systeminfo"
	"mcguard/utils"
)

func init() {
	logger.Init("error")
}

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

type fakeLocator struct {
	procs []systeminfo.ProcessInfo
	err   error
}

func (f fakeLocator) FindTargetProcesses(context.Context) ([]systeminfo.ProcessInfo, error) {
	return f.procs, f.err
}

type fakeModules struct {
	modules map[int32][]string
	errs    map[int32]error
	calls   []int32
}

func (f *fakeModules) ListModules(_ context.Context, pid int32) ([]string, error) {
	f.calls = append(f.calls, pid)
	if err := f.errs[pid]; err != nil {
		return []string{}, err
	}
	return f.modules[pid], nil
}

func testClassifier() *classifier.Classifier {
	return classifier.New(signatures.DefaultTable(), signatures.DefaultPatternList(),
		classifier.WithExistsFunc(func(string) bool { return true }))
}

func TestRunNoTargetsSkipsModuleEnumeration(t *testing.T) {
	for name, loc := range map[string]fakeLocator{
		"empty": {},
		"error": {err: errors.New("process table unavailable")},
	} {
		t.Run(name, func(t *testing.T) {
			mods := &fakeModules{}
			s := New(loc, mods, testClassifier(), Options{Now: fixedNow})
			res, err := s.Run(context.Background())
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if res.Status != StatusNoTargetsFound || res.Message != NoTargetsMessage {
				t.Fatalf("unexpected result %+v", res)
			}
			if res.ScanTime != "2026-10-19T12:00:00Z" {
				t.Fatalf("unexpected scan time %q", res.ScanTime)
			}
			if len(mods.calls) != 0 {
				t.Fatalf("module enumeration must not run, got calls %v", mods.calls)
			}
			if res.Results != nil || res.ProcessesScanned != 0 {
				t.Fatalf("no per-process data expected, got %+v", res)
			}
		})
	}
}

func TestRunJavawScenario(t *testing.T) {
	loc := fakeLocator{procs: []systeminfo.ProcessInfo{{PID: 100, Name: "javaw.exe"}}}
	mods := &fakeModules{modules: map[int32][]string{
		100: {`C:\x\horion.dll`, `C:\x\normal.dll`},
	}}
	s := New(loc, mods, testClassifier(), Options{Now: fixedNow})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := s.Progress(); got != 3 {
		t.Fatalf("expected one process and two modules inspected, got %d", got)
	}
	if res.Status != StatusCompleted || res.ProcessesScanned != 1 || len(res.Results) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	pr := res.Results[0]
	if pr.PID != 100 || pr.ProcessName != "javaw.exe" {
		t.Fatalf("unexpected process %+v", pr)
	}
	if pr.TotalModules != 2 || pr.SuspiciousModules != 1 || len(pr.ThreatsFound) != 1 {
		t.Fatalf("unexpected counts %+v", pr)
	}
	threat := pr.ThreatsFound[0]
	if threat.Name != "horion.dll" || threat.Risk != signatures.RiskDangerous || threat.DetectionType != classifier.DetectionKnownSignature {
		t.Fatalf("unexpected threat %+v", threat)
	}
	if pr.ModuleAccess != "" {
		t.Fatalf("unexpected module access %q", pr.ModuleAccess)
	}
}

func TestRunPreservesOrderAndAggregates(t *testing.T) {
	procs := []systeminfo.ProcessInfo{
		{PID: 30, Name: "MinecraftLauncher.exe"},
		{PID: 10, Name: "javaw.exe"},
		{PID: 20, Name: "Minecraft.Windows.exe"},
		{PID: 40, Name: "java.exe"},
	}
	mods := &fakeModules{
		modules: map[int32][]string{
			30: {`C:\l\launcher.dll`},
			10: {`C:\j\wurst.dll`, `C:\j\injector.dll`, `C:\j\opengl32.dll`},
			20: {`C:\b\mod_menu_loader.dll`},
		},
		errs: map[int32]error{
			40: fmt.Errorf("pid 40: %w", systeminfo.ErrAccessDenied),
		},
	}
	res, err := New(fakeLocator{procs: procs}, mods, testClassifier(), Options{Now: fixedNow}).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(res.Results) != len(procs) {
		t.Fatalf("expected %d results, got %d", len(procs), len(res.Results))
	}
	sum := 0
	for i, pr := range res.Results {
		if pr.PID != procs[i].PID {
			t.Fatalf("result %d: pid %d, want %d", i, pr.PID, procs[i].PID)
		}
		if pr.ThreatsFound == nil {
			t.Fatalf("result %d: threats must be an empty list, not nil", i)
		}
		if pr.SuspiciousModules != len(pr.ThreatsFound) {
			t.Fatalf("result %d: suspicious %d != threats %d", i, pr.SuspiciousModules, len(pr.ThreatsFound))
		}
		sum += len(pr.ThreatsFound)
	}
	if res.TotalThreats() != sum || sum != 3 {
		t.Fatalf("expected 3 threats in total, got %d (sum %d)", res.TotalThreats(), sum)
	}
	if got := res.Results[3]; got.ModuleAccess != ModuleAccessDenied || got.TotalModules != 0 {
		t.Fatalf("expected denied process with no modules, got %+v", got)
	}
	if len(mods.calls) != 4 {
		t.Fatalf("expected one enumeration per process, got %v", mods.calls)
	}
}

func TestRunIgnoredModulesAreCountedNotClassified(t *testing.T) {
	loc := fakeLocator{procs: []systeminfo.ProcessInfo{{PID: 1, Name: "javaw.exe"}}}
	mods := &fakeModules{modules: map[int32][]string{
		1: {`C:\Steam\gameoverlayrenderer.dll`, `C:\x\overlay.dll`, `C:\x\cheat_overlay.dll`},
	}}
	ignore, err := utils.NewIgnoreMatcher([]string{"gameoverlay*.dll", "overlay.dll"})
	if err != nil {
		t.Fatalf("ignore matcher: %v", err)
	}
	s := New(loc, mods, testClassifier(), Options{Now: fixedNow, Ignore: ignore})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	pr := res.Results[0]
	if pr.TotalModules != 3 || len(pr.ThreatsFound) != 1 || pr.ThreatsFound[0].Name != "cheat_overlay.dll" {
		t.Fatalf("unexpected result %+v", pr)
	}
}

func TestRunCancelled(t *testing.T) {
	loc := fakeLocator{procs: []systeminfo.ProcessInfo{{PID: 1, Name: "java.exe"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(loc, &fakeModules{}, testClassifier(), Options{}).Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunWithRateLimit(t *testing.T) {
	procs := []systeminfo.ProcessInfo{{PID: 1, Name: "java.exe"}, {PID: 2, Name: "javaw.exe"}}
	mods := &fakeModules{}
	s := New(fakeLocator{procs: procs}, mods, testClassifier(), Options{MaxInspectionsPerSecond: 1000})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Results) != 2 || len(mods.calls) != 2 {
		t.Fatalf("unexpected result %+v calls %v", res, mods.calls)
	}
}

func TestModuleAccessFor(t *testing.T) {
	cases := map[error]ModuleAccess{
		fmt.Errorf("x: %w", systeminfo.ErrAccessDenied): ModuleAccessDenied,
		fmt.Errorf("x: %w", systeminfo.ErrProcessGone):  ModuleAccessProcessExited,
		errors.New("other"):                             ModuleAccessUnavailable,
	}
	for err, want := range cases {
		if got := moduleAccessFor(err); got != want {
			t.Errorf("moduleAccessFor(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CustomSignatures = map[string]signatures.Entry{
		"vape.dll": {DisplayName: "Vape", Risk: signatures.RiskDangerous, Description: "Vape client"},
	}
	cfg.CustomPatterns = []string{"esp"}
	cfg.CollectEvidence = true
	s, err := NewFromConfig(cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if s.locator == nil || s.modules == nil || s.classifier == nil {
		t.Fatalf("scanner not fully wired: %+v", s)
	}

	cfg.CustomSignatures = map[string]signatures.Entry{"x.dll": {Risk: "low"}}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatal("expected invalid custom signature error")
	}

	cfg.CustomSignatures = nil
	cfg.IgnorePatterns = []string{"re:("}
	if _, err := NewFromConfig(cfg); err == nil {
		t.Fatal("expected invalid ignore pattern error")
	}
}
