package metadata

import (
	"debug/elf"
	"debug/pe"
	"os"
	"sort"
	"strings"
	"time"
)

const (
	mimePortableExecutable = "application/vnd.microsoft.portable-executable"
	mimeELF                = "application/x-executable"
)

// ModuleMetadata holds header details of a binary module. Fields that do not
// apply to the module's format stay empty.
type ModuleMetadata struct {
	Format    string   `json:"format"`
	Machine   string   `json:"machine,omitempty"`
	LinkTime  string   `json:"link_time,omitempty"`
	IsDLL     *bool    `json:"is_dll,omitempty"`
	Subsystem uint16   `json:"subsystem,omitempty,omitzero"`
	Class     string   `json:"class,omitempty"`
	Type      string   `json:"type,omitempty"`
	Sections  []string `json:"sections,omitempty"`
	Imports   []string `json:"imports,omitempty"`
}

// ExtractMetadata returns header details for binary module formats. Files
// larger than maxBytes (when positive) and unsupported or unreadable files
// yield nil.
func ExtractMetadata(path string, mimeType string, maxBytes int64) *ModuleMetadata {
	if maxBytes > 0 {
		info, err := os.Stat(path)
		if err != nil || info.Size() > maxBytes {
			return nil
		}
	}

	switch mimeType {
	case mimePortableExecutable:
		return extractPEMetadata(path)
	case mimeELF:
		return extractELFMetadata(path)
	default:
		// Unsupported MIME type for metadata extraction
		return nil
	}
}

var peMachines = map[uint16]string{
	pe.IMAGE_FILE_MACHINE_I386:  "i386",
	pe.IMAGE_FILE_MACHINE_AMD64: "amd64",
	pe.IMAGE_FILE_MACHINE_ARM64: "arm64",
	pe.IMAGE_FILE_MACHINE_ARMNT: "arm",
}

// extractPEMetadata reads COFF header fields plus the import list when an
// optional header is present.
func extractPEMetadata(path string) *ModuleMetadata {
	f, err := pe.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	isDLL := f.Characteristics&pe.IMAGE_FILE_DLL != 0
	meta := &ModuleMetadata{
		Format:   "pe",
		Machine:  "unknown",
		IsDLL:    &isDLL,
		Sections: sectionNames(f.Sections),
	}
	if machine, ok := peMachines[f.Machine]; ok {
		meta.Machine = machine
	}
	if f.TimeDateStamp != 0 {
		meta.LinkTime = time.Unix(int64(f.TimeDateStamp), 0).UTC().Format(time.RFC3339)
	}

	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		meta.Subsystem = oh.Subsystem
	case *pe.OptionalHeader64:
		meta.Subsystem = oh.Subsystem
	}
	if f.OptionalHeader != nil {
		if libs, err := f.ImportedLibraries(); err == nil && len(libs) > 0 {
			sort.Strings(libs)
			meta.Imports = libs
		}
	}
	return meta
}

func sectionNames(sections []*pe.Section) []string {
	if len(sections) == 0 {
		return nil
	}
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, strings.TrimRight(s.Name, "\x00"))
	}
	return names
}

func extractELFMetadata(path string) *ModuleMetadata {
	f, err := elf.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	meta := &ModuleMetadata{
		Format:  "elf",
		Machine: strings.ToLower(strings.TrimPrefix(f.Machine.String(), "EM_")),
		Class:   f.Class.String(),
		Type:    f.Type.String(),
	}
	if libs, err := f.ImportedLibraries(); err == nil && len(libs) > 0 {
		sort.Strings(libs)
		meta.Imports = libs
	}
	return meta
}
