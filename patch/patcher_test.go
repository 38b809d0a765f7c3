package patch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/quilt/qerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Diff {
	t.Helper()
	d, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	return d
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// TestPushPopRoundTrip exercises the one-line edit from scenario S1 plus
// the Patcher's own reverse mode (stack.Ops.Pop instead restores straight
// from the backup tree; this checks the lower-level capability in isolation).
func TestPushPopRoundTrip(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backup")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("old\n"), 0o644))

	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-old\n+new\n")
	p := NewPatcher()
	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1, BackupDir: backupDir}))

	assert.Equal(t, "new\n", readFile(t, filepath.Join(dir, "f")))
	assert.Equal(t, "old\n", readFile(t, filepath.Join(backupDir, "f")))

	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1, Reverse: true}))
	assert.Equal(t, "old\n", readFile(t, filepath.Join(dir, "f")))
}

// TestFileCreate covers scenario S2.
func TestFileCreate(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backup")

	d := mustParse(t, "--- /dev/null\n+++ b/g\n@@ -0,0 +1 @@\n+hi\n")
	p := NewPatcher()
	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1, BackupDir: backupDir}))

	assert.Equal(t, "hi\n", readFile(t, filepath.Join(dir, "g")))
	info, err := os.Stat(filepath.Join(backupDir, "g"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1, Reverse: true}))
	_, err = os.Stat(filepath.Join(dir, "g"))
	assert.True(t, os.IsNotExist(err))
}

// TestFileDelete applies a delete hunk and checks the file disappears.
func TestFileDelete(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "g"), []byte("bye\n"), 0o644))

	d := mustParse(t, "--- a/g\n+++ /dev/null\n@@ -1 +0,0 @@\n-bye\n")
	p := NewPatcher()
	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1}))

	_, err := os.Stat(filepath.Join(dir, "g"))
	assert.True(t, os.IsNotExist(err))
}

// TestConflictWithoutForce covers scenario S4.
func TestConflictWithoutForce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("conflict\n"), 0o644))

	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-old\n+new\n")
	p := NewPatcher()
	err := p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1})
	require.Error(t, err)
	assert.True(t, qerrors.HasError[*qerrors.ConflictError](err))
	assert.Equal(t, "conflict\n", readFile(t, filepath.Join(dir, "f")))
}

// TestMissingFileConflict checks applying to a file that isn't there.
func TestMissingFileConflict(t *testing.T) {
	dir := t.TempDir()
	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-old\n+new\n")
	p := NewPatcher()
	err := p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1})
	require.Error(t, err)
	conflict, ok := qerrors.As[*qerrors.ConflictError](err)
	require.True(t, ok)
	assert.Equal(t, qerrors.ConflictFileMissing, conflict.Kind)
}

// TestRelocation covers scenario S6: the hunk declares a begin offset that
// is off by two lines from where its context actually matches.
func TestRelocation(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	for i := 1; i <= 100; i++ {
		lines = append(lines, "line")
	}
	lines[11] = "marker" // actual match point is line 12 (1-based)
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte(content), 0o644))

	// Hunk declares begin at line 10 (1-based) but "marker" is really at line 12.
	patchSrc := "--- a/f\n+++ b/f\n@@ -10 +10 @@\n-marker\n+MARKER\n"
	d := mustParse(t, patchSrc)
	p := NewPatcher()
	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1}))

	got := strings.Split(strings.TrimSuffix(readFile(t, filepath.Join(dir, "f")), "\n"), "\n")
	assert.Equal(t, "MARKER", got[11])
}

func TestRelocationFailsWhenAmbiguousContextMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("a\nb\nc\n"), 0o644))

	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -10 +10 @@\n-nowhere\n+found\n")
	p := NewPatcher()
	err := p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1})
	require.Error(t, err)
	conflict, ok := qerrors.As[*qerrors.ConflictError](err)
	require.True(t, ok)
	assert.Equal(t, qerrors.ConflictHunkNotFound, conflict.Kind)
}

func TestStripNotEnoughComponents(t *testing.T) {
	dir := t.TempDir()
	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-old\n+new\n")
	p := NewPatcher()
	err := p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 5})
	require.Error(t, err)
}

func TestNoNewlineAtEOFRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f"), []byte("old"), 0o644))

	d := mustParse(t, "--- a/f\n+++ b/f\n@@ -1 +1 @@\n-old\n\\ No newline at end of file\n+new\n\\ No newline at end of file\n")
	p := NewPatcher()
	require.NoError(t, p.Apply(d, ApplyOptions{WorkDir: dir, Strip: 1}))
	assert.Equal(t, "new", readFile(t, filepath.Join(dir, "f")))
}
