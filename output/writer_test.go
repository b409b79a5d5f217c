package output

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"mcguard/evidence"
	"mcguard/metadata"
	"mcguard/scanner"
)

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minecraft_scan_results.json")
	want := sampleResult()
	isDLL := true
	want.Results[0].ThreatsFound[0].Evidence = &evidence.Evidence{
		Size:     1024,
		MimeType: "application/vnd.microsoft.portable-executable",
		Hashes:   map[string]string{"sha256": "abc"},
		Metadata: &metadata.ModuleMetadata{
			Format:    "pe",
			Machine:   "amd64",
			LinkTime:  "2023-11-14T22:13:20Z",
			IsDLL:     &isDLL,
			Subsystem: 3,
			Sections:  []string{".text", ".rdata"},
			Imports:   []string{"kernel32.dll", "user32.dll"},
		},
	}

	if err := WriteFile(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected non-empty artifact")
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 8192)), 0600); err != nil {
		t.Fatal(err)
	}
	r := &scanner.ScanResult{
		Status:   scanner.StatusNoTargetsFound,
		Message:  scanner.NoTargetsMessage,
		ScanTime: "2026-10-19T10:00:00Z",
	}
	if err := WriteFile(path, r); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load after overwrite: %v", err)
	}
	if got.Status != scanner.StatusNoTargetsFound || got.Message != scanner.NoTargetsMessage {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestMarshalLayout(t *testing.T) {
	data, err := Marshal(&scanner.ScanResult{
		Status:   scanner.StatusNoTargetsFound,
		Message:  scanner.NoTargetsMessage,
		ScanTime: "2026-10-19T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	text := string(data)
	for _, fragment := range []string{
		"\n  \"status\": \"no_minecraft_found\"",
		"\"message\": \"No Minecraft processes detected\"",
	} {
		if !strings.Contains(text, fragment) {
			t.Fatalf("expected %q in %s", fragment, text)
		}
	}
	if strings.Contains(text, "results") || strings.Contains(text, "processes_scanned") {
		t.Fatalf("no-target result should omit process fields: %s", text)
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Fatal("expected trailing newline")
	}
}

func TestMarshalKeepsEmptyThreatList(t *testing.T) {
	data, err := Marshal(sampleResult())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), "\"threats_found\": []") {
		t.Fatalf("expected empty threats list to serialize as []: %s", data)
	}
	if !strings.Contains(string(data), "\"module_access\": \"access_denied\"") {
		t.Fatalf("expected module_access for denied process: %s", data)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatal("expected error for malformed file")
	}
}
