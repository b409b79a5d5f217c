package evidence

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"mcguard/logger"
)

func init() {
	logger.Init("error")
}

func writePE(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(1)).Read(data)
	data[0], data[1] = 'M', 'Z'
	path := filepath.Join(t.TempDir(), "horion.dll")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestCollectPortableExecutable(t *testing.T) {
	path := writePE(t, 8192)

	ev, err := Collect(path, Options{HashAlgorithms: []string{"sha256", "blake3"}, FuzzyHash: true})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if ev.Size != 8192 {
		t.Fatalf("unexpected size %d", ev.Size)
	}
	if ev.MimeType != "application/vnd.microsoft.portable-executable" {
		t.Fatalf("unexpected mime type %q", ev.MimeType)
	}
	if len(ev.Hashes["sha256"]) != 64 || len(ev.Hashes["blake3"]) != 64 {
		t.Fatalf("unexpected hashes %v", ev.Hashes)
	}
	if ev.FuzzyHashes["tlsh"] == "" {
		t.Fatalf("expected tlsh digest, got %v", ev.FuzzyHashes)
	}
	if ev.ModTime == "" || ev.AccessTime == "" {
		t.Fatalf("expected file times, got %+v", ev)
	}
}

func TestCollectWithoutOptionalCollectors(t *testing.T) {
	path := writePE(t, 64)
	ev, err := Collect(path, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if ev.Hashes != nil || ev.FuzzyHashes != nil {
		t.Fatalf("expected no hashes, got %+v", ev)
	}
}

func TestCollectEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dll")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev, err := Collect(path, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if ev.Size != 0 || ev.MimeType != "unknown" {
		t.Fatalf("unexpected evidence %+v", ev)
	}
}

func TestCollectMissingFile(t *testing.T) {
	if _, err := Collect(filepath.Join(t.TempDir(), "gone.dll"), Options{}); err == nil {
		t.Fatal("expected stat error")
	}
}

func TestCollectPEMetadata(t *testing.T) {
	var buf bytes.Buffer
	dos := make([]byte, 0x40)
	copy(dos, "MZ")
	binary.LittleEndian.PutUint32(dos[0x3c:], 0x40)
	buf.Write(dos)
	buf.WriteString("PE\x00\x00")
	fh := pe.FileHeader{Machine: pe.IMAGE_FILE_MACHINE_I386, Characteristics: pe.IMAGE_FILE_DLL}
	if err := binary.Write(&buf, binary.LittleEndian, fh); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "vape.dll")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatal(err)
	}

	ev, err := Collect(path, Options{})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	meta := ev.Metadata
	if meta == nil || meta.Machine != "i386" || meta.IsDLL == nil || !*meta.IsDLL {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}
