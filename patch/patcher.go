package patch

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/quilt/pathops"
	"github.com/deepnoodle-ai/quilt/qerrors"
)

// ApplyOptions configures a single Patcher.Apply call.
type ApplyOptions struct {
	WorkDir string // working tree root
	Strip   int    // leading path components to drop from each filename
	Reverse bool   // apply the patch backwards (undo)
	DryRun  bool   // validate without touching the filesystem

	// BackupDir, if non-empty, receives the pre-patch content of every file
	// this call touches: the full content for a modified or deleted file,
	// an empty placeholder for a created one.
	BackupDir string
}

// Patcher applies a parsed Diff to a working tree, one file section at a
// time, in order, with conflict detection and best-effort hunk relocation.
type Patcher struct{}

// NewPatcher returns a ready-to-use Patcher. It carries no state of its own.
func NewPatcher() *Patcher {
	return &Patcher{}
}

// Apply applies every file section of d to opts.WorkDir in order. It stops
// at the first Conflict or I/O error; sections already applied are left in
// place; the caller's BackupDir (if any) holds enough information to roll
// them back. It is equivalent to ApplyContext with a background context.
func (p *Patcher) Apply(d *Diff, opts ApplyOptions) error {
	return p.ApplyContext(context.Background(), d, opts)
}

// ApplyContext behaves like Apply but checks ctx for cancellation between
// file sections, so a caller driving a long patch can abort cooperatively
// without leaving a section partially applied.
func (p *Patcher) ApplyContext(ctx context.Context, d *Diff, opts ApplyOptions) error {
	for i := range d.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := d.Files[i]
		if opts.Reverse {
			f = reverseFileDiff(f)
		}
		if err := p.applyFile(&f, opts); err != nil {
			return err
		}
	}
	return nil
}

// reverseFileDiff swaps the src/dest roles of a file section so that
// applying it runs the patch backwards: a create becomes a delete, a
// delete becomes a create, and each hunk's in_src/in_dest lines trade places.
func reverseFileDiff(f FileDiff) FileDiff {
	out := FileDiff{
		IndexName:  f.IndexName,
		SrcName:    f.DestName,
		SrcExists:  f.DestExists,
		DestName:   f.SrcName,
		DestExists: f.SrcExists,
		Hunks:      make([]Hunk, len(f.Hunks)),
	}
	for i, h := range f.Hunks {
		rh := Hunk{
			SrcBegin:  h.DestBegin,
			SrcCount:  h.DestCount,
			DestBegin: h.SrcBegin,
			DestCount: h.SrcCount,
			Lines:     make([]HunkLine, len(h.Lines)),
		}
		for j, l := range h.Lines {
			rh.Lines[j] = HunkLine{InSrc: l.InDest, InDest: l.InSrc, Payload: l.Payload, NoNewline: l.NoNewline}
		}
		out.Hunks[i] = rh
	}
	return out
}

func (p *Patcher) applyFile(f *FileDiff, opts ApplyOptions) error {
	target := f.TargetName()
	parts := strings.Split(target, "/")
	if len(parts) <= opts.Strip {
		return fmt.Errorf("%w: %s", qerrors.ErrNotEnoughPathComponents, target)
	}
	rel, err := pathops.Clean(strings.Join(parts[opts.Strip:], "/"))
	if err != nil {
		return err
	}
	fullPath, err := pathops.Join(opts.WorkDir, rel)
	if err != nil {
		return err
	}

	var srcLines []string
	mode := os.FileMode(0o644)

	if f.SrcExists {
		info, serr := os.Stat(fullPath)
		if serr != nil {
			if os.IsNotExist(serr) {
				return &qerrors.ConflictError{Kind: qerrors.ConflictFileMissing, File: rel, Err: serr}
			}
			return serr
		}
		mode = info.Mode().Perm()

		data, rerr := os.ReadFile(fullPath)
		if rerr != nil {
			return rerr
		}
		if opts.BackupDir != "" && !opts.DryRun {
			if err := backupContent(opts.BackupDir, rel, data, mode); err != nil {
				return err
			}
		}
		srcLines, _ = splitLines(data)
	} else {
		exists, eerr := pathops.Exists(fullPath)
		if eerr != nil {
			return eerr
		}
		if exists {
			return &qerrors.ConflictError{Kind: qerrors.ConflictFileAlreadyExists, File: rel}
		}
		if opts.BackupDir != "" && !opts.DryRun {
			if err := backupContent(opts.BackupDir, rel, nil, 0o644); err != nil {
				return err
			}
		}
	}

	var dest bytes.Buffer
	srcPos := 0

	for hi := range f.Hunks {
		h := &f.Hunks[hi]
		if h.SrcBegin < srcPos {
			return &qerrors.ConflictError{Kind: qerrors.ConflictLineMismatch, File: rel}
		}

		begin := h.SrcBegin
		if !linesMatch(srcLines, begin, h) {
			if !f.DestExists {
				return &qerrors.ConflictError{Kind: qerrors.ConflictLineMismatch, File: rel}
			}
			located, ok := relocateHunk(srcLines, srcPos, begin, h)
			if !ok {
				return &qerrors.ConflictError{Kind: qerrors.ConflictHunkNotFound, File: rel}
			}
			begin = located
		}

		for srcPos < begin {
			if f.DestExists {
				dest.WriteString(srcLines[srcPos])
			}
			srcPos++
		}
		for _, l := range h.Lines {
			if l.InSrc {
				if srcPos >= len(srcLines) || srcLines[srcPos] != string(l.Payload) {
					return &qerrors.ConflictError{Kind: qerrors.ConflictLineMismatch, File: rel}
				}
				srcPos++
			}
			if l.InDest {
				dest.Write(l.Payload)
			}
		}
	}

	if f.DestExists {
		for srcPos < len(srcLines) {
			dest.WriteString(srcLines[srcPos])
			srcPos++
		}
	} else if f.SrcExists && srcPos < len(srcLines) {
		return &qerrors.ConflictError{Kind: qerrors.ConflictExtraDataInDeletedFile, File: rel}
	}

	if opts.DryRun {
		return nil
	}

	if f.DestExists {
		if err := pathops.EnsureDir(filepath.Dir(fullPath)); err != nil {
			return err
		}
		return pathops.AtomicReplace(fullPath, dest.Bytes(), mode)
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// linesMatch reports whether h's in_src lines match srcLines starting at begin.
func linesMatch(srcLines []string, begin int, h *Hunk) bool {
	pos := begin
	for _, l := range h.Lines {
		if l.InSrc {
			if pos >= len(srcLines) || srcLines[pos] != string(l.Payload) {
				return false
			}
			pos++
		}
	}
	return true
}

// relocateHunk builds the literal src-side block h expects and searches for
// it in srcLines, forward from declaredBegin and backward from declaredBegin
// down to minPos (the position already consumed by earlier hunks). It
// prefers the closer match, breaking ties toward the forward direction.
func relocateHunk(srcLines []string, minPos, declaredBegin int, h *Hunk) (int, bool) {
	var block []string
	for _, l := range h.Lines {
		if l.InSrc {
			block = append(block, string(l.Payload))
		}
	}
	if len(block) == 0 {
		if declaredBegin >= minPos && declaredBegin <= len(srcLines) {
			return declaredBegin, true
		}
		return 0, false
	}

	forward := -1
	for i := declaredBegin; i+len(block) <= len(srcLines); i++ {
		if blockMatches(srcLines, i, block) {
			forward = i
			break
		}
	}
	backward := -1
	for i := declaredBegin; i >= minPos; i-- {
		if i+len(block) <= len(srcLines) && blockMatches(srcLines, i, block) {
			backward = i
			break
		}
	}

	switch {
	case forward < 0 && backward < 0:
		return 0, false
	case forward < 0:
		return backward, true
	case backward < 0:
		return forward, true
	default:
		if declaredBegin-backward < forward-declaredBegin {
			return backward, true
		}
		return forward, true
	}
}

func blockMatches(srcLines []string, start int, block []string) bool {
	for i, want := range block {
		if srcLines[start+i] != want {
			return false
		}
	}
	return true
}

// backupContent writes data to <backupDir>/<rel> if that path doesn't
// already hold a backup for the current patch. A nil data records the
// zero-byte placeholder used to mean "this file was created by this patch".
// mode is stamped onto the backup file itself so pop can restore the
// original target's permissions along with its content.
func backupContent(backupDir, rel string, data []byte, mode os.FileMode) error {
	backupPath, err := pathops.Join(backupDir, rel)
	if err != nil {
		return err
	}
	exists, err := pathops.Exists(backupPath)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := pathops.EnsureDir(filepath.Dir(backupPath)); err != nil {
		return err
	}
	return pathops.AtomicReplace(backupPath, data, mode)
}
