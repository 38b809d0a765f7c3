package patch

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// WriteOptions configures WriteUnified's output.
type WriteOptions struct {
	// SrcLabel and DestLabel are the "--- " / "+++ " header names, e.g.
	// "a/foo.c" and "b/foo.c". Ignored (replaced by "/dev/null") when
	// OldAbsent / NewAbsent is set.
	SrcLabel  string
	DestLabel string

	// IndexName, if non-empty, emits an "Index: <name>" line before the headers.
	IndexName string

	// Context is the number of unchanged lines of context around each hunk.
	// Zero means the default of 3, matching classic diff.
	Context int

	// OldAbsent/NewAbsent mark a file create or delete: the corresponding
	// header reads "/dev/null" and the hunk range on that side is "0,0".
	OldAbsent bool
	NewAbsent bool
}

// WriteUnified writes a unified diff of old -> new to w using go-difflib's
// SequenceMatcher as the longest-common-subsequence engine, with hunk
// headers, /dev/null sides, the Index: preamble, and the no-newline marker
// layered on to match classic diff -u output exactly. When old and new are
// byte-equal, nothing is written.
func WriteUnified(w io.Writer, opts WriteOptions, old, new []byte) error {
	if bytes.Equal(old, new) {
		return nil
	}
	context := opts.Context
	if context <= 0 {
		context = 3
	}

	aLines, aNoNL := splitLines(old)
	bLines, bNoNL := splitLines(new)

	matcher := difflib.NewMatcher(aLines, bLines)
	groups := matcher.GetGroupedOpCodes(context)
	if len(groups) == 0 {
		return nil
	}

	srcLabel := opts.SrcLabel
	if opts.OldAbsent {
		srcLabel = "/dev/null"
	}
	destLabel := opts.DestLabel
	if opts.NewAbsent {
		destLabel = "/dev/null"
	}

	if opts.IndexName != "" {
		if _, err := fmt.Fprintf(w, "Index: %s\n", opts.IndexName); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "--- %s\n", srcLabel); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "+++ %s\n", destLabel); err != nil {
		return err
	}

	for _, group := range groups {
		first, last := group[0], group[len(group)-1]
		if _, err := fmt.Fprintf(w, "@@ -%s +%s @@\n", formatRange(first.I1, last.I2), formatRange(first.J1, last.J2)); err != nil {
			return err
		}
		for _, op := range group {
			switch op.Tag {
			case 'e':
				if err := writeHunkLines(w, ' ', aLines, op.I1, op.I2, aNoNL); err != nil {
					return err
				}
			case 'r':
				if err := writeHunkLines(w, '-', aLines, op.I1, op.I2, aNoNL); err != nil {
					return err
				}
				if err := writeHunkLines(w, '+', bLines, op.J1, op.J2, bNoNL); err != nil {
					return err
				}
			case 'd':
				if err := writeHunkLines(w, '-', aLines, op.I1, op.I2, aNoNL); err != nil {
					return err
				}
			case 'i':
				if err := writeHunkLines(w, '+', bLines, op.J1, op.J2, bNoNL); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// writeHunkLines emits lines[from:to] each prefixed with marker. When the
// range reaches the final line of lines and noFinalNewline is set, the
// "\ No newline at end of file" marker follows it.
func writeHunkLines(w io.Writer, marker byte, lines []string, from, to int, noFinalNewline bool) error {
	for i := from; i < to; i++ {
		line := lines[i]
		if _, err := fmt.Fprintf(w, "%c%s", marker, line); err != nil {
			return err
		}
		last := i == len(lines)-1
		if !strings.HasSuffix(line, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if last && noFinalNewline {
			if _, err := io.WriteString(w, "\\ No newline at end of file\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// formatRange reproduces classic diff's unified-range formatting: a single
// line is written as just its number, an empty range reports the line
// before it, and any other span is "begin,length".
func formatRange(start, stop int) string {
	beginning := start + 1
	length := stop - start
	if length == 1 {
		return strconv.Itoa(beginning)
	}
	if length == 0 {
		beginning--
	}
	return fmt.Sprintf("%d,%d", beginning, length)
}

// splitLines splits data into lines, each retaining its trailing '\n'
// except possibly the last, and reports whether the last line lacks one.
func splitLines(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return nil, false
	}
	noFinalNewline := data[len(data)-1] != '\n'
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, string(data[start:i+1]))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, string(data[start:]))
	}
	return lines, noFinalNewline
}
