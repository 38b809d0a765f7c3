// Package patchdb persists the on-disk state of a patch stack: the series
// file, the applied-patches list, and the per-patch backup trees, timestamps,
// and refresh markers beneath a .pc directory.
package patchdb

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/quilt/pathops"
)

// Patch is an immutable series entry: a name plus the strip/reverse
// metadata carried alongside it in the series file. Two patches are equal
// iff their names are equal.
type Patch struct {
	Name    string
	Strip   int
	Reverse bool
}

// Equal reports whether p and other name the same patch, ignoring Strip/Reverse.
func (p Patch) Equal(other Patch) bool {
	return p.Name == other.Name
}

// seriesFileName is the name of the series file within the patches directory.
const seriesFileName = "series"

// LoadSeries reads <patchesDir>/series, tolerating trailing whitespace,
// blank lines, and "#"-prefixed comments, and preserving each patch's -pN
// and -R option suffixes. A missing file yields a nil slice and no error.
func LoadSeries(patchesDir string) ([]Patch, error) {
	path := filepath.Join(patchesDir, seriesFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patches []Patch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseSeriesLine(line)
		if err != nil {
			return nil, fmt.Errorf("patchdb: %s: %w", path, err)
		}
		patches = append(patches, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patches, nil
}

func parseSeriesLine(line string) (Patch, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Patch{}, fmt.Errorf("empty series line")
	}
	p := Patch{Name: fields[0], Strip: 1}
	for _, opt := range fields[1:] {
		switch {
		case opt == "-R":
			p.Reverse = true
		case strings.HasPrefix(opt, "-p"):
			n, err := strconv.Atoi(opt[2:])
			if err != nil {
				return Patch{}, fmt.Errorf("invalid -p option %q: %w", opt, err)
			}
			p.Strip = n
		case strings.HasPrefix(opt, "#"):
			// trailing comment, stop parsing options
			goto done
		default:
			return Patch{}, fmt.Errorf("unrecognized series option %q", opt)
		}
	}
done:
	if _, err := pathops.Clean(p.Name); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// SaveSeries rewrites <patchesDir>/series atomically with one patch per
// line, preserving each entry's strip/reverse metadata.
func SaveSeries(patchesDir string, patches []Patch) error {
	var buf bytes.Buffer
	for _, p := range patches {
		buf.WriteString(p.Name)
		if p.Strip != 1 {
			fmt.Fprintf(&buf, " -p%d", p.Strip)
		}
		if p.Reverse {
			buf.WriteString(" -R")
		}
		buf.WriteString("\n")
	}
	if err := pathops.EnsureDir(patchesDir); err != nil {
		return err
	}
	return pathops.AtomicReplace(filepath.Join(patchesDir, seriesFileName), buf.Bytes(), 0o644)
}
