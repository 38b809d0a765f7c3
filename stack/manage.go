package stack

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/quilt/patchdb"
	"github.com/deepnoodle-ai/quilt/pathops"
	"github.com/deepnoodle-ai/quilt/qerrors"
)

// New creates an empty patch named name and inserts it into the series
// immediately after the topmost applied patch. It does not apply it: a
// subsequent Push applies it as a no-op (AppliedEmptyPatch), after which
// Add can start tracking files under it.
func (o *Ops) New(name string) error {
	clean, err := pathops.Clean(name)
	if err != nil {
		return err
	}
	series, err := o.loadSeries()
	if err != nil {
		return err
	}
	if _, ok := findPatch(series, clean); ok {
		return &qerrors.PatchAlreadyExistsError{Name: clean}
	}
	appliedNames, err := o.db.LoadApplied()
	if err != nil {
		return err
	}
	if containsName(appliedNames, clean) {
		return &qerrors.PatchAlreadyExistsError{Name: clean}
	}
	path := o.patchFilePath(clean)
	if exists, err := pathops.Exists(path); err != nil {
		return err
	} else if exists {
		return &qerrors.PatchAlreadyExistsError{Name: clean}
	}

	insertAt := len(appliedNames)
	newSeries := make([]Patch, 0, len(series)+1)
	newSeries = append(newSeries, series[:insertAt]...)
	newSeries = append(newSeries, Patch{Name: clean, Strip: 1})
	newSeries = append(newSeries, series[insertAt:]...)
	if err := patchdb.SaveSeries(o.PatchesDir, newSeries); err != nil {
		return err
	}

	if err := pathops.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := pathops.AtomicReplace(path, nil, 0o644); err != nil {
		return err
	}
	o.Observer.EmptyPatch(clean)
	return nil
}

// Import copies each file into the patches directory and appends it to the
// series after the topmost applied patch. name renames the import; it is
// only valid when exactly one file is given.
func (o *Ops) Import(files []string, name string) error {
	if name != "" && len(files) != 1 {
		return fmt.Errorf("stack: import: a name override requires exactly one file, got %d", len(files))
	}
	series, err := o.loadSeries()
	if err != nil {
		return err
	}
	appliedNames, err := o.db.LoadApplied()
	if err != nil {
		return err
	}
	insertAt := len(appliedNames)

	newSeries := make([]Patch, 0, len(series)+len(files))
	newSeries = append(newSeries, series[:insertAt]...)
	for _, f := range files {
		base := name
		if base == "" {
			base = filepath.Base(f)
		}
		if _, ok := findPatch(series, base); ok {
			return &qerrors.PatchAlreadyExistsError{Name: base}
		}
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		dest := o.patchFilePath(base)
		if err := pathops.EnsureDir(filepath.Dir(dest)); err != nil {
			return err
		}
		if err := pathops.AtomicReplace(dest, data, 0o644); err != nil {
			return err
		}
		newSeries = append(newSeries, Patch{Name: base, Strip: 1})
	}
	newSeries = append(newSeries, series[insertAt:]...)
	return patchdb.SaveSeries(o.PatchesDir, newSeries)
}

// Delete removes a patch from the series, popping it first if it is
// applied (it must be the topmost applied patch). remove deletes the patch
// file from disk too; backup (only meaningful with remove) renames it to
// "<name>~" instead of unlinking it. With name empty, next selects the
// first unapplied patch in series order; otherwise the current top is used.
func (o *Ops) Delete(name string, remove, backup, next bool) error {
	series, err := o.loadSeries()
	if err != nil {
		return err
	}
	appliedNames, err := o.db.LoadApplied()
	if err != nil {
		return err
	}

	target := name
	if target == "" {
		if next {
			if len(appliedNames) >= len(series) {
				return &qerrors.AllPatchesAppliedError{}
			}
			target = series[len(appliedNames)].Name
		} else {
			if len(appliedNames) == 0 {
				return &qerrors.NoPatchesAppliedError{}
			}
			target = appliedNames[len(appliedNames)-1]
		}
	}

	sp, ok := findPatch(series, target)
	if !ok {
		return &qerrors.UnknownPatchError{Name: target}
	}
	isApplied := containsName(appliedNames, target)

	o.Observer.DeletingPatch(target, isApplied)

	if isApplied {
		if appliedNames[len(appliedNames)-1] != target {
			return fmt.Errorf("stack: delete: %s is applied but not topmost; pop patches above it first", target)
		}
		if err := o.Pop(target, false, true); err != nil {
			return err
		}
	}

	newSeries := make([]Patch, 0, len(series))
	for _, p := range series {
		if p.Name != target {
			newSeries = append(newSeries, p)
		}
	}
	if err := patchdb.SaveSeries(o.PatchesDir, newSeries); err != nil {
		return err
	}

	if remove {
		path := o.patchFilePath(sp.Name)
		if backup {
			if err := os.Rename(path, path+"~"); err != nil && !os.IsNotExist(err) {
				return err
			}
		} else if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	o.Observer.DeletedPatch(target)
	return nil
}
