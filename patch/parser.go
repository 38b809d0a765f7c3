package patch

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/quilt/qerrors"
)

// Parse reads a complete unified diff from r and returns its structured
// representation. It enforces the full grammar described by the engine:
// Index: overrides, /dev/null create/delete markers, 1-based-to-0-based
// range conversion, the "\ No newline at end of file" marker, and strictly
// increasing hunk order within a file section.
func Parse(r io.Reader) (*Diff, error) {
	p := &parser{r: bufio.NewReader(r)}
	diff := &Diff{}

	var index string
	var cur *FileDiff

	for {
		line, err := p.readLine()
		if err != nil {
			break
		}

		switch {
		case bytes.HasPrefix(line, []byte("Index:")):
			stripped, serr := stripNewline(line, qerrors.ErrInvalidIndexLine)
			if serr != nil {
				return nil, qerrors.NewParseError(p.lineNo, serr)
			}
			rest, ok := bytes.CutPrefix(stripped, []byte("Index: "))
			if !ok {
				return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrInvalidIndexLine)
			}
			index = string(rest)
			continue

		case bytes.HasPrefix(line, []byte("---")):
			if cur != nil {
				diff.Files = append(diff.Files, *cur)
			}
			fd, ferr := p.parseFilenamePair(line, index)
			index = ""
			if ferr != nil {
				return nil, ferr
			}
			cur = fd
			continue
		}

		if cur == nil {
			continue
		}

		if bytes.HasPrefix(line, []byte("@@ -")) {
			hunk, herr := p.parseHunkHeader(line, cur.SrcExists, cur.DestExists)
			if herr != nil {
				return nil, herr
			}
			if n := len(cur.Hunks); n > 0 {
				prev := cur.Hunks[n-1]
				if hunk.SrcBegin < prev.SrcBegin+prev.SrcCount {
					return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrOutOfOrderHunk)
				}
			}
			if err := p.parseHunkLines(hunk); err != nil {
				return nil, err
			}
			cur.Hunks = append(cur.Hunks, *hunk)
			continue
		}
	}

	if cur != nil {
		diff.Files = append(diff.Files, *cur)
	}
	return diff, nil
}

type parser struct {
	r      *bufio.Reader
	lineNo int
}

// readLine returns the next raw line, trailing newline included when
// present. It reports io.EOF only once nothing at all remains.
func (p *parser) readLine() ([]byte, error) {
	line, err := p.r.ReadBytes('\n')
	if len(line) == 0 {
		return nil, io.EOF
	}
	p.lineNo++
	return line, nil
}

// stripNewline strips the trailing newline (and a CRLF's carriage return)
// from line, validating that no other CR appears in it. truncated is
// returned verbatim when the line has no trailing newline at all.
func stripNewline(line []byte, truncated error) ([]byte, error) {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		return nil, truncated
	}
	body := line[:len(line)-1]
	if len(body) > 0 && body[len(body)-1] == '\r' {
		body = body[:len(body)-1]
	}
	if bytes.IndexByte(body, '\r') >= 0 {
		return nil, qerrors.ErrUnexpectedCR
	}
	return body, nil
}

func cutTab(b []byte) (before, after []byte) {
	if idx := bytes.IndexByte(b, '\t'); idx >= 0 {
		return b[:idx], b[idx+1:]
	}
	return b, nil
}

func (p *parser) parseFilenamePair(dashLine []byte, index string) (*FileDiff, error) {
	stripped, err := stripNewline(dashLine, qerrors.ErrTruncatedHeader)
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, err)
	}
	rest, ok := bytes.CutPrefix(stripped, []byte("--- "))
	if !ok {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrInvalidSourceName)
	}
	src, _ := cutTab(rest)
	srcExists := string(src) != "/dev/null"

	plusLine, err := p.readLine()
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHeader)
	}
	stripped2, err := stripNewline(plusLine, qerrors.ErrTruncatedHeader)
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, err)
	}
	rest2, ok := bytes.CutPrefix(stripped2, []byte("+++ "))
	if !ok {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrInvalidDestName)
	}
	dst, _ := cutTab(rest2)
	destExists := string(dst) != "/dev/null"

	fd := &FileDiff{
		IndexName:  index,
		SrcName:    string(src),
		SrcExists:  srcExists,
		DestName:   string(dst),
		DestExists: destExists,
	}
	if strings.HasPrefix(fd.TargetName(), "/") {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrAbsolutePath)
	}
	return fd, nil
}

func (p *parser) parseHunkHeader(line []byte, srcExists, destExists bool) (*Hunk, error) {
	stripped, err := stripNewline(line, qerrors.ErrTruncatedHeader)
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, err)
	}
	rest, ok := bytes.CutPrefix(stripped, []byte("@@ -"))
	if !ok {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHeader)
	}
	sepIdx := bytes.Index(rest, []byte(" +"))
	if sepIdx < 0 {
		return nil, qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHeader)
	}
	srcRange := rest[:sepIdx]
	remainder := rest[sepIdx+2:]
	destRange := remainder
	if sp := bytes.IndexByte(remainder, ' '); sp >= 0 {
		destRange = remainder[:sp]
	}

	srcBegin, srcCount, err := parseRange(srcRange, srcExists)
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, err)
	}
	destBegin, destCount, err := parseRange(destRange, destExists)
	if err != nil {
		return nil, qerrors.NewParseError(p.lineNo, err)
	}
	return &Hunk{SrcBegin: srcBegin, SrcCount: srcCount, DestBegin: destBegin, DestCount: destCount}, nil
}

// parseRange parses one side of a "@@" range ("N" or "N,M"), converting the
// 1-based begin to 0-based. A side that is absent (exists == false) must
// carry a zero begin and zero count.
func parseRange(raw []byte, exists bool) (begin, count int, err error) {
	comma := bytes.IndexByte(raw, ',')
	var beginPart, countPart []byte
	if comma >= 0 {
		beginPart, countPart = raw[:comma], raw[comma+1:]
	} else {
		beginPart = raw
	}
	begin, perr := strconv.Atoi(string(beginPart))
	if perr != nil {
		return 0, 0, qerrors.ErrTruncatedHeader
	}
	if comma >= 0 {
		count, perr = strconv.Atoi(string(countPart))
		if perr != nil {
			return 0, 0, qerrors.ErrTruncatedHeader
		}
	} else {
		count = 1
	}
	if !exists && count != 0 {
		return 0, 0, qerrors.ErrInvalidRangeForAbsentFile
	}
	if count != 0 {
		begin--
	}
	if !exists && begin != 0 {
		return 0, 0, qerrors.ErrInvalidRangeForAbsentFile
	}
	return begin, count, nil
}

// parseHunkLines reads h.SrcCount + h.DestCount worth of payload lines
// (lines counting against both sides count once), recognizing a leading
// "\" line as a no-newline marker attaching to the line just read.
func (p *parser) parseHunkLines(h *Hunk) error {
	srcRemaining, destRemaining := h.SrcCount, h.DestCount
	for srcRemaining > 0 || destRemaining > 0 {
		line, err := p.readLine()
		if err != nil {
			return qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHunk)
		}
		if line[0] == '\\' {
			if len(h.Lines) == 0 {
				return qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHunk)
			}
			last := &h.Lines[len(h.Lines)-1]
			last.Payload = bytes.TrimSuffix(last.Payload, []byte("\n"))
			last.NoNewline = true
			continue
		}
		if err := validateLineEnding(line); err != nil {
			return qerrors.NewParseError(p.lineNo, err)
		}
		marker := line[0]
		inSrc := marker == ' ' || marker == '-' || marker == '\n'
		inDest := marker == ' ' || marker == '+' || marker == '\n'
		payload := line[1:]
		if inSrc {
			if srcRemaining == 0 {
				return qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHunk)
			}
			srcRemaining--
		}
		if inDest {
			if destRemaining == 0 {
				return qerrors.NewParseError(p.lineNo, qerrors.ErrTruncatedHunk)
			}
			destRemaining--
		}
		h.Lines = append(h.Lines, HunkLine{InSrc: inSrc, InDest: inDest, Payload: payload})
	}
	return nil
}

// validateLineEnding enforces the same CR rule as stripNewline but leaves
// the line's bytes untouched, since hunk payloads are literal file content.
func validateLineEnding(line []byte) error {
	if len(line) == 0 || line[len(line)-1] != '\n' {
		return qerrors.ErrTruncatedHunk
	}
	body := line[:len(line)-1]
	if len(body) > 0 && body[len(body)-1] == '\r' {
		body = body[:len(body)-1]
	}
	if bytes.IndexByte(body, '\r') >= 0 {
		return qerrors.ErrUnexpectedCR
	}
	return nil
}
