// Package signals defines the observer hooks StackOps fires while it drives
// a push, pop, refresh, or other stack mutation. There is no dynamic
// subscription machinery here: a caller implements Observer (embedding
// NoopObserver lets it implement only the events it cares about) and passes
// it to the operation; each event fires exactly once, in the order the
// underlying work happens.
package signals

// Observer receives progress notifications from stack operations. Every
// method corresponds to exactly one signal in the CLI's original vocabulary.
type Observer interface {
	// FileAdded fires when a file's current content is captured into a
	// patch's backup tree by an add operation.
	FileAdded(file, patch string)

	// FileReverted fires when revert restores a file to its backed-up content.
	FileReverted(file, patch string)

	// FileUnchanged fires when revert finds a file identical to its backup.
	FileUnchanged(file, patch string)

	// ApplyingPatch fires immediately before a patch's hunks are applied.
	ApplyingPatch(patch string)

	// Applied fires after a patch has been successfully applied and the
	// applied stack updated.
	Applied(patch string)

	// AppliedEmptyPatch fires when a patch applies cleanly but touches no
	// files. existed reports whether the patch file already had content.
	AppliedEmptyPatch(patch string, existed bool)

	// Unapplying fires immediately before a patch is popped off the stack.
	Unapplying(patch string)

	// Unapplied fires after a patch has been popped. Pop on an empty stack
	// returns an error and fires no event, so patch is never empty.
	Unapplied(patch string)

	// EmptyPatch fires when a newly created patch has no content yet.
	EmptyPatch(patch string)

	// EditPatch carries the path of a temporary file handed to an editor.
	// No operation in package stack fires it.
	EditPatch(tmpfile string)

	// Refreshed fires after a patch file has been rewritten by refresh.
	Refreshed(patch string)

	// DeletingPatch fires before a patch is removed from the series.
	// applied reports whether it was popped first.
	DeletingPatch(patch string, applied bool)

	// DeletedPatch fires after a patch has been removed from the series.
	DeletedPatch(patch string)
}

// NoopObserver implements Observer with empty method bodies. Embed it in a
// caller's observer type to only override the events of interest.
type NoopObserver struct{}

func (NoopObserver) FileAdded(file, patch string)                 {}
func (NoopObserver) FileReverted(file, patch string)              {}
func (NoopObserver) FileUnchanged(file, patch string)             {}
func (NoopObserver) ApplyingPatch(patch string)                   {}
func (NoopObserver) Applied(patch string)                         {}
func (NoopObserver) AppliedEmptyPatch(patch string, existed bool) {}
func (NoopObserver) Unapplying(patch string)                      {}
func (NoopObserver) Unapplied(patch string)                       {}
func (NoopObserver) EmptyPatch(patch string)                      {}
func (NoopObserver) EditPatch(tmpfile string)                     {}
func (NoopObserver) Refreshed(patch string)                       {}
func (NoopObserver) DeletingPatch(patch string, applied bool)     {}
func (NoopObserver) DeletedPatch(patch string)                    {}

var _ Observer = NoopObserver{}
