package patchdb

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"time"

	"github.com/deepnoodle-ai/quilt/pathops"
)

// appliedFileName is the name of the applied-patches file within the pc directory.
const appliedFileName = "applied-patches"

// DB wraps the .pc directory: the applied-patches list plus, per applied
// patch, its backup tree, .timestamp file, and ~refresh marker.
type DB struct {
	PCDir string
}

// New returns a DB rooted at pcDir. pcDir is created lazily by the first
// mutating call.
func New(pcDir string) *DB {
	return &DB{PCDir: pcDir}
}

// LoadApplied parses <pcDir>/applied-patches, one name per line. A missing
// file yields a nil slice and no error.
func (db *DB) LoadApplied() ([]string, error) {
	f, err := os.Open(filepath.Join(db.PCDir, appliedFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// Top returns the last applied patch name, or "" if none are applied.
func (db *DB) Top() (string, error) {
	names, err := db.LoadApplied()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	return names[len(names)-1], nil
}

// saveApplied rewrites the applied-patches file atomically.
func (db *DB) saveApplied(names []string) error {
	if err := pathops.EnsureDir(db.PCDir); err != nil {
		return err
	}
	var buf bytes.Buffer
	for _, n := range names {
		buf.WriteString(n)
		buf.WriteString("\n")
	}
	return pathops.AtomicReplace(filepath.Join(db.PCDir, appliedFileName), buf.Bytes(), 0o644)
}

// Push appends name to the applied-patches list.
func (db *DB) Push(name string) error {
	names, err := db.LoadApplied()
	if err != nil {
		return err
	}
	names = append(names, name)
	return db.saveApplied(names)
}

// Pop removes the last entry from the applied-patches list. It is a no-op
// if the list is already empty.
func (db *DB) Pop() error {
	names, err := db.LoadApplied()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return nil
	}
	return db.saveApplied(names[:len(names)-1])
}

// BackupDir returns the backup-tree directory for a patch name.
func (db *DB) BackupDir(name string) string {
	return filepath.Join(db.PCDir, name)
}

// timestampPath returns the .timestamp sentinel path within a patch's
// backup directory.
func (db *DB) timestampPath(name string) string {
	return filepath.Join(db.BackupDir(name), ".timestamp")
}

// TouchTimestamp creates (or updates the mtime of) a patch's .timestamp
// file, recording that it has been refreshed since its backup tree was last
// rewritten.
func (db *DB) TouchTimestamp(name string) error {
	dir := db.BackupDir(name)
	if err := pathops.EnsureDir(dir); err != nil {
		return err
	}
	path := db.timestampPath(name)
	now := time.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		f, cerr := os.Create(path)
		if cerr != nil {
			return cerr
		}
		return f.Close()
	}
	return nil
}

// refreshMarkerPath returns the sibling ~refresh sentinel for a patch.
func (db *DB) refreshMarkerPath(name string) string {
	return filepath.Join(db.PCDir, name+"~refresh")
}

// SetRefreshMarker creates the ~refresh sentinel for name, recording that
// the working tree has diverged from the patch since it was last refreshed.
func (db *DB) SetRefreshMarker(name string) error {
	if err := pathops.EnsureDir(filepath.Dir(db.refreshMarkerPath(name))); err != nil {
		return err
	}
	f, err := os.Create(db.refreshMarkerPath(name))
	if err != nil {
		return err
	}
	return f.Close()
}

// ClearRefreshMarker removes the ~refresh sentinel for name, if present.
func (db *DB) ClearRefreshMarker(name string) error {
	err := os.Remove(db.refreshMarkerPath(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// HasRefreshMarker reports whether name's ~refresh sentinel is present.
func (db *DB) HasRefreshMarker(name string) (bool, error) {
	return pathops.Exists(db.refreshMarkerPath(name))
}

// RemoveBackupDir deletes a patch's entire backup tree, used once its
// content has been consumed by pop or superseded by refresh.
func (db *DB) RemoveBackupDir(name string) error {
	return os.RemoveAll(db.BackupDir(name))
}
