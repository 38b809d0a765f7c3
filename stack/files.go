package stack

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/deepnoodle-ai/quilt/patch"
	"github.com/deepnoodle-ai/quilt/pathops"
	"github.com/deepnoodle-ai/quilt/qerrors"
	"github.com/deepnoodle-ai/quilt/unidiff"
)

// Add captures the current working-tree content of each file into the
// named (or topmost) applied patch's backup tree, so that a later refresh
// picks up edits to it. A file that does not yet exist is recorded as a
// creation placeholder. Re-adding an already-tracked file is a no-op.
func (o *Ops) Add(files []string, patchName string) error {
	p, err := o.resolveTargetPatch(patchName)
	if err != nil {
		return err
	}
	backupDir := o.db.BackupDir(p.Name)
	for _, file := range files {
		rel, err := pathops.Clean(file)
		if err != nil {
			return err
		}
		backupPath, err := pathops.Join(backupDir, rel)
		if err != nil {
			return err
		}
		tracked, err := pathops.Exists(backupPath)
		if err != nil {
			return err
		}
		if tracked {
			continue
		}
		target, err := pathops.Join(o.WorkDir, rel)
		if err != nil {
			return err
		}
		targetExists, err := pathops.Exists(target)
		if err != nil {
			return err
		}
		var data []byte
		if targetExists {
			data, err = os.ReadFile(target)
			if err != nil {
				return err
			}
		}
		if err := pathops.EnsureDir(filepath.Dir(backupPath)); err != nil {
			return err
		}
		if err := pathops.AtomicReplace(backupPath, data, 0o644); err != nil {
			return err
		}
		if err := o.db.SetRefreshMarker(p.Name); err != nil {
			return err
		}
		o.Observer.FileAdded(rel, p.Name)
	}
	return nil
}

// Revert restores each file to the content recorded in the named (or
// topmost) applied patch's backup tree, undoing any working-tree edits
// made since the file was added/patched. When the backup tree has nothing
// left tracked afterward, the patch's RefreshMarker is cleared.
func (o *Ops) Revert(files []string, patchName string) error {
	p, err := o.resolveTargetPatch(patchName)
	if err != nil {
		return err
	}
	backupDir := o.db.BackupDir(p.Name)
	for _, file := range files {
		rel, err := pathops.Clean(file)
		if err != nil {
			return err
		}
		if err := o.revertOne(backupDir, rel, p.Name); err != nil {
			return err
		}
	}
	remaining, err := pathops.WalkFiles(backupDir)
	if err != nil {
		return err
	}
	if onlyTimestamp(remaining) {
		if err := o.db.ClearRefreshMarker(p.Name); err != nil {
			return err
		}
	}
	return nil
}

func onlyTimestamp(files []string) bool {
	for _, f := range files {
		if f != ".timestamp" {
			return false
		}
	}
	return true
}

func (o *Ops) revertOne(backupDir, rel, patchName string) error {
	backupPath, err := pathops.Join(backupDir, rel)
	if err != nil {
		return err
	}
	tracked, err := pathops.Exists(backupPath)
	if err != nil {
		return err
	}
	target, err := pathops.Join(o.WorkDir, rel)
	if err != nil {
		return err
	}
	if !tracked {
		o.Observer.FileUnchanged(rel, patchName)
		return nil
	}

	info, err := os.Stat(backupPath)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		curExists, err := pathops.Exists(target)
		if err != nil {
			return err
		}
		if curExists {
			if err := os.Remove(target); err != nil {
				return err
			}
			o.Observer.FileReverted(rel, patchName)
		} else {
			o.Observer.FileUnchanged(rel, patchName)
		}
		return os.Remove(backupPath)
	}

	backupData, err := os.ReadFile(backupPath)
	if err != nil {
		return err
	}
	curExists, err := pathops.Exists(target)
	if err != nil {
		return err
	}
	var curData []byte
	if curExists {
		curData, err = os.ReadFile(target)
		if err != nil {
			return err
		}
	}
	if curExists && bytes.Equal(backupData, curData) {
		o.Observer.FileUnchanged(rel, patchName)
		return os.Remove(backupPath)
	}
	if err := pathops.EnsureDir(filepath.Dir(target)); err != nil {
		return err
	}
	if err := pathops.AtomicReplace(target, backupData, info.Mode().Perm()); err != nil {
		return err
	}
	o.Observer.FileReverted(rel, patchName)
	return os.Remove(backupPath)
}

// Diff produces, without writing anything, the bytes that Refresh would
// write for the named (or topmost) applied patch.
func (o *Ops) Diff(patchName string) ([]byte, error) {
	p, err := o.resolveTargetPatch(patchName)
	if err != nil {
		return nil, err
	}
	return o.buildPatchBytes(p)
}

// DiffStat summarizes the Diff output for the named (or topmost) applied
// patch using the same line-classification logic the rest of the codebase
// uses to analyze arbitrary unified diffs.
func (o *Ops) DiffStat(patchName string) (unidiff.Stats, error) {
	data, err := o.Diff(patchName)
	if err != nil {
		return unidiff.Stats{}, err
	}
	if len(data) == 0 {
		return unidiff.Stats{}, nil
	}
	d, err := unidiff.Parse(string(data))
	if err != nil {
		return unidiff.Stats{}, err
	}
	return d.Stats(), nil
}

// Refresh re-diffs the working tree against the named (or topmost) applied
// patch's backup tree and rewrites the patch file with the result. It
// fails with *qerrors.NothingToRefreshError if the result is byte-identical
// to the patch file already on disk.
func (o *Ops) Refresh(patchName string) error {
	p, err := o.resolveTargetPatch(patchName)
	if err != nil {
		return err
	}
	newContent, err := o.buildPatchBytes(p)
	if err != nil {
		return err
	}

	patchPath := o.patchFilePath(p.Name)
	oldContent, err := os.ReadFile(patchPath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if bytes.Equal(oldContent, newContent) {
		return &qerrors.NothingToRefreshError{}
	}
	if err := pathops.EnsureDir(filepath.Dir(patchPath)); err != nil {
		return err
	}
	if err := pathops.AtomicReplace(patchPath, newContent, 0o644); err != nil {
		return err
	}
	if err := o.db.TouchTimestamp(p.Name); err != nil {
		return err
	}
	if err := o.db.ClearRefreshMarker(p.Name); err != nil {
		return err
	}
	o.Observer.Refreshed(p.Name)
	return nil
}

// buildPatchBytes walks p's backup tree and writes a unified diff of each
// tracked file's backed-up (pre-patch) content against its current
// working-tree content, concatenated with "Index:" separators in sorted
// path order.
func (o *Ops) buildPatchBytes(p Patch) ([]byte, error) {
	backupDir := o.db.BackupDir(p.Name)
	all, err := pathops.WalkFiles(backupDir)
	if err != nil {
		return nil, err
	}
	var rels []string
	for _, f := range all {
		if f != ".timestamp" {
			rels = append(rels, f)
		}
	}
	sort.Strings(rels)

	var buf bytes.Buffer
	for _, rel := range rels {
		backupPath, err := pathops.Join(backupDir, rel)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(backupPath)
		if err != nil {
			return nil, err
		}
		oldAbsent := info.Size() == 0
		var oldData []byte
		if !oldAbsent {
			oldData, err = os.ReadFile(backupPath)
			if err != nil {
				return nil, err
			}
		}

		target, err := pathops.Join(o.WorkDir, rel)
		if err != nil {
			return nil, err
		}
		newExists, err := pathops.Exists(target)
		if err != nil {
			return nil, err
		}
		var newData []byte
		if newExists {
			newData, err = os.ReadFile(target)
			if err != nil {
				return nil, err
			}
		}

		if err := patch.WriteUnified(&buf, patch.WriteOptions{
			SrcLabel:  "a/" + rel,
			DestLabel: "b/" + rel,
			IndexName: rel,
			OldAbsent: oldAbsent,
			NewAbsent: !newExists,
		}, oldData, newData); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
