// Package patch implements the unified-diff parser, writer, and tree
// patcher at the heart of the patch engine: DiffParser, DiffWriter, and
// TreePatcher.
package patch

// HunkLine is one payload line inside a Hunk. InSrc and InDest mirror the
// classic unified-diff markers: a context line (no marker, or a bare
// newline) is both; a "-" line is src-only; a "+" line is dest-only.
type HunkLine struct {
	InSrc     bool
	InDest    bool
	Payload   []byte // line content, including its trailing '\n' unless NoNewline
	NoNewline bool   // true if the source file had no trailing newline on this line
}

// Hunk is one contiguous edit region of a file section. Begin values are
// 0-based, converted from the 1-based external representation at parse time.
type Hunk struct {
	SrcBegin  int
	SrcCount  int
	DestBegin int
	DestCount int
	Lines     []HunkLine
}

// FileDiff is one file section of a parsed patch: the filename pair, their
// existence flags, and the ordered hunks to apply.
type FileDiff struct {
	IndexName  string // from an "Index:" line, if the section carried one
	SrcName    string
	SrcExists  bool
	DestName   string
	DestExists bool
	Hunks      []Hunk
}

// TargetName picks the filename this section addresses before strip
// components are dropped: the Index: override wins, else SRC if it exists,
// else DST.
func (f *FileDiff) TargetName() string {
	if f.IndexName != "" {
		return f.IndexName
	}
	if f.SrcExists {
		return f.SrcName
	}
	return f.DestName
}

// Diff is a fully parsed patch: zero or more file sections in file order.
type Diff struct {
	Files []FileDiff
}
