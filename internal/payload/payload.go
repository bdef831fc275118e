// Package payload provides the stored-XSS payload set: the built-in list or
// a user-supplied file, loaded once per run and shared read-only.
package payload

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
)

// defaults are the built-in payloads. The first five render in a shape the
// detector has a signature for; the template one relies on marker matching.
var defaults = []string{
	`<script>alert("XSSTest")</script>`,
	`<img src=x onerror=alert("XSSTest")>`,
	`<svg/onload=alert("XSSTest")>`,
	`'"><script>alert("XSSTest")</script>`,
	"<iframe src=\"javascript:alert(`XSSTest`)\">",
	`{${alert("XSSTest")}}`,
}

// Defaults returns a copy of the built-in payload list.
func Defaults() []string {
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// Source tells where a loaded payload set came from.
type Source int

const (
	// SourceDefault means the built-in list is in use.
	SourceDefault Source = iota
	// SourceFile means the payloads were read from a file.
	SourceFile
)

// Set is a loaded payload list.
type Set struct {
	Payloads []string
	Source   Source
	Path     string
	// Fallback explains why a requested file was not used, if it was not.
	Fallback string
}

// Load returns the payloads for a run. An empty path selects the built-in
// list. A path that does not exist, or a file with no non-blank lines, also
// falls back to the built-ins, with the reason recorded on the Set. Other
// read errors are returned.
func Load(path string) (*Set, error) {
	if path == "" {
		return &Set{Payloads: Defaults(), Source: SourceDefault}, nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("payload: expand %s: %w", path, err)
	}

	f, err := os.Open(expanded)
	if errors.Is(err, fs.ErrNotExist) {
		return &Set{
			Payloads: Defaults(),
			Source:   SourceDefault,
			Path:     expanded,
			Fallback: "payload file not found",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("payload: open %s: %w", expanded, err)
	}
	defer f.Close()

	lines, err := ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("payload: read %s: %w", expanded, err)
	}
	if len(lines) == 0 {
		return &Set{
			Payloads: Defaults(),
			Source:   SourceDefault,
			Path:     expanded,
			Fallback: "payload file is empty",
		}, nil
	}
	return &Set{Payloads: lines, Source: SourceFile, Path: expanded}, nil
}

// ReadLines returns the trimmed non-blank lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
