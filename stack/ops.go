// Package stack implements the high-level patch-stack orchestration layer:
// new, add, push, pop, delete, revert, refresh, and import. It coordinates
// patchdb's on-disk state with the patch package's parser, writer, and
// tree patcher, publishing progress through signals.Observer as it goes.
package stack

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/quilt/patch"
	"github.com/deepnoodle-ai/quilt/patchdb"
	"github.com/deepnoodle-ai/quilt/pathops"
	"github.com/deepnoodle-ai/quilt/qerrors"
	"github.com/deepnoodle-ai/quilt/signals"
)

// Patch is a series entry: a name plus the strip/reverse metadata carried
// alongside it in the series file. It is an alias of patchdb.Patch so
// callers never need to convert between the two packages.
type Patch = patchdb.Patch

// Ops drives every stack-level operation against one working tree, patches
// directory, and .pc directory. It holds no cached state: every call
// re-reads the series and applied-patches files, so concurrent Ops values
// over the same directories observe each other's committed changes.
type Ops struct {
	WorkDir    string
	PatchesDir string
	PCDir      string
	Observer   signals.Observer

	db *patchdb.DB
}

// New returns an Ops rooted at the given working tree, patches directory,
// and .pc directory. A nil observer is replaced with signals.NoopObserver.
func New(workDir, patchesDir, pcDir string, observer signals.Observer) *Ops {
	if observer == nil {
		observer = signals.NoopObserver{}
	}
	return &Ops{
		WorkDir:    workDir,
		PatchesDir: patchesDir,
		PCDir:      pcDir,
		Observer:   observer,
		db:         patchdb.New(pcDir),
	}
}

func (o *Ops) loadSeries() ([]Patch, error) {
	return patchdb.LoadSeries(o.PatchesDir)
}

func findPatch(series []Patch, name string) (Patch, bool) {
	for _, p := range series {
		if p.Name == name {
			return p, true
		}
	}
	return Patch{}, false
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func (o *Ops) patchFilePath(name string) string {
	return filepath.Join(o.PatchesDir, filepath.FromSlash(name))
}

// Top returns the topmost applied patch, or *qerrors.NoPatchesAppliedError
// if the stack is empty, or *qerrors.NoPatchesInSeriesError if the series
// itself is empty.
func (o *Ops) Top() (Patch, error) {
	series, err := o.loadSeries()
	if err != nil {
		return Patch{}, err
	}
	if len(series) == 0 {
		return Patch{}, &qerrors.NoPatchesInSeriesError{}
	}
	name, err := o.db.Top()
	if err != nil {
		return Patch{}, err
	}
	if name == "" {
		return Patch{}, &qerrors.NoPatchesAppliedError{}
	}
	p, ok := findPatch(series, name)
	if !ok {
		p = Patch{Name: name, Strip: 1}
	}
	return p, nil
}

// AppliedPatches returns the applied stack in apply order (bottom first,
// top last), with each entry's strip/reverse metadata from the series.
func (o *Ops) AppliedPatches() ([]Patch, error) {
	series, err := o.loadSeries()
	if err != nil {
		return nil, err
	}
	names, err := o.db.LoadApplied()
	if err != nil {
		return nil, err
	}
	patches := make([]Patch, 0, len(names))
	for _, n := range names {
		p, ok := findPatch(series, n)
		if !ok {
			p = Patch{Name: n, Strip: 1}
		}
		patches = append(patches, p)
	}
	return patches, nil
}

// SeriesPatches returns the full series in canonical apply order.
func (o *Ops) SeriesPatches() ([]Patch, error) {
	return o.loadSeries()
}

// resolveTargetPatch resolves the patch an add/revert/refresh call should
// operate on: the named patch if given (it must be applied), or else the
// current top.
func (o *Ops) resolveTargetPatch(name string) (Patch, error) {
	if name == "" {
		return o.Top()
	}
	series, err := o.loadSeries()
	if err != nil {
		return Patch{}, err
	}
	p, ok := findPatch(series, name)
	if !ok {
		return Patch{}, &qerrors.UnknownPatchError{Name: name}
	}
	names, err := o.db.LoadApplied()
	if err != nil {
		return Patch{}, err
	}
	if !containsName(names, name) {
		return Patch{}, &qerrors.UnknownPatchError{Name: name}
	}
	return p, nil
}

// Push applies patches in series order. With an empty target it applies
// exactly the next unapplied patch; with a target it applies patches up to
// and including the named one. force converts a Conflict into a committed
// push that sets a RefreshMarker instead of aborting.
func (o *Ops) Push(ctx context.Context, target string, force bool) error {
	series, err := o.loadSeries()
	if err != nil {
		return err
	}
	if len(series) == 0 {
		return &qerrors.NoPatchesInSeriesError{}
	}
	appliedNames, err := o.db.LoadApplied()
	if err != nil {
		return err
	}

	targetIdx := -1
	if target != "" {
		for i, p := range series {
			if p.Name == target {
				targetIdx = i
				break
			}
		}
		if targetIdx < 0 {
			return &qerrors.UnknownPatchError{Name: target}
		}
		if targetIdx < len(appliedNames) {
			// Already applied: idempotent no-op, matching push's "make the
			// stack reach this state" framing rather than erroring.
			return nil
		}
	}

	for {
		if len(appliedNames) >= len(series) {
			return &qerrors.AllPatchesAppliedError{}
		}
		next := series[len(appliedNames)]
		if err := o.pushOne(ctx, next, force); err != nil {
			return err
		}
		appliedNames = append(appliedNames, next.Name)
		if target == "" || next.Name == target {
			return nil
		}
	}
}

func (o *Ops) pushOne(ctx context.Context, p Patch, force bool) error {
	if topName, err := o.db.Top(); err != nil {
		return err
	} else if topName != "" {
		has, err := o.db.HasRefreshMarker(topName)
		if err != nil {
			return err
		}
		if has && !force {
			return &qerrors.NeedsRefreshError{Patch: topName}
		}
	}

	data, err := os.ReadFile(o.patchFilePath(p.Name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	existed := len(data) > 0

	diff, err := patch.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}

	o.Observer.ApplyingPatch(p.Name)

	if len(diff.Files) == 0 {
		if err := o.db.Push(p.Name); err != nil {
			return err
		}
		if err := o.db.TouchTimestamp(p.Name); err != nil {
			return err
		}
		o.Observer.AppliedEmptyPatch(p.Name, existed)
		return nil
	}

	backupDir := o.db.BackupDir(p.Name)
	patcher := patch.NewPatcher()
	applyErr := patcher.ApplyContext(ctx, diff, patch.ApplyOptions{
		WorkDir:   o.WorkDir,
		Strip:     p.Strip,
		Reverse:   p.Reverse,
		BackupDir: backupDir,
	})
	if applyErr != nil {
		if force && qerrors.HasError[*qerrors.ConflictError](applyErr) {
			if err := o.db.Push(p.Name); err != nil {
				return err
			}
			if err := o.db.TouchTimestamp(p.Name); err != nil {
				return err
			}
			if err := o.db.SetRefreshMarker(p.Name); err != nil {
				return err
			}
			o.Observer.Applied(p.Name)
			return nil
		}
		_ = os.RemoveAll(backupDir)
		return applyErr
	}

	if err := o.db.Push(p.Name); err != nil {
		return err
	}
	if err := o.db.TouchTimestamp(p.Name); err != nil {
		return err
	}
	o.Observer.Applied(p.Name)
	return nil
}

// Pop unapplies patches from the top of the stack. With an empty target and
// all=false it pops exactly the current top; with a target it pops down to
// and including the named patch; with all=true it pops the entire stack.
func (o *Ops) Pop(target string, all, force bool) error {
	appliedNames, err := o.db.LoadApplied()
	if err != nil {
		return err
	}
	if len(appliedNames) == 0 {
		return &qerrors.NoPatchesAppliedError{}
	}
	if target != "" && !containsName(appliedNames, target) {
		return &qerrors.UnknownPatchError{Name: target}
	}

	for {
		topName, err := o.db.Top()
		if err != nil {
			return err
		}
		if topName == "" {
			return nil
		}
		has, err := o.db.HasRefreshMarker(topName)
		if err != nil {
			return err
		}
		if has && !force {
			return &qerrors.NeedsRefreshError{Patch: topName}
		}
		o.Observer.Unapplying(topName)
		if err := o.popOne(topName); err != nil {
			return err
		}
		o.Observer.Unapplied(topName)
		if !all && (target == "" || topName == target) {
			return nil
		}
	}
}

// popOne restores every file tracked in name's backup tree, prunes the
// tree, and removes name from the applied-patches file.
func (o *Ops) popOne(name string) error {
	backupDir := o.db.BackupDir(name)
	files, err := pathops.WalkFiles(backupDir)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if rel == ".timestamp" {
			continue
		}
		backupPath, err := pathops.Join(backupDir, rel)
		if err != nil {
			return err
		}
		targetPath, err := pathops.Join(o.WorkDir, rel)
		if err != nil {
			return err
		}
		info, err := os.Stat(backupPath)
		if err != nil {
			return err
		}
		if info.Size() == 0 {
			if err := os.Remove(targetPath); err != nil && !os.IsNotExist(err) {
				return err
			}
			continue
		}
		data, err := os.ReadFile(backupPath)
		if err != nil {
			return err
		}
		if err := pathops.EnsureDir(filepath.Dir(targetPath)); err != nil {
			return err
		}
		if err := pathops.AtomicReplace(targetPath, data, info.Mode().Perm()); err != nil {
			return err
		}
	}
	if err := o.db.RemoveBackupDir(name); err != nil {
		return err
	}
	if err := o.db.ClearRefreshMarker(name); err != nil {
		return err
	}
	return o.db.Pop()
}
