package output

import (
	"bufio"
	"fmt"
	"os"

	"mcguard/scanner"
)

// Marshal encodes r as indented JSON.
func Marshal(r *scanner.ScanResult) ([]byte, error) {
	data, err := jsonMarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func Unmarshal(data []byte) (*scanner.ScanResult, error) {
	var r scanner.ScanResult
	if err := jsonUnmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// WriteFile serializes r to path, replacing any existing file.
func WriteFile(path string, r *scanner.ScanResult) error {
	data, err := Marshal(r)
	if err != nil {
		return fmt.Errorf("encode scan result: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(f)
	if _, err := buf.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Load reads a scan result previously written by WriteFile.
func Load(path string) (*scanner.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, nil
}
