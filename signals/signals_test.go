package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Recorder implements Observer and appends the name of each applying,
// applied, unapplying, and unapplied call, in order; every other event
// falls through to the embedded NoopObserver.
type Recorder struct {
	NoopObserver
	Events []string
}

func (r *Recorder) ApplyingPatch(patch string) {
	r.Events = append(r.Events, "applying_patch:"+patch)
}

func (r *Recorder) Applied(patch string) {
	r.Events = append(r.Events, "applied:"+patch)
}

func (r *Recorder) Unapplying(patch string) {
	r.Events = append(r.Events, "unapplying:"+patch)
}

func (r *Recorder) Unapplied(patch string) {
	r.Events = append(r.Events, "unapplied:"+patch)
}

func TestNoopObserverSatisfiesInterface(t *testing.T) {
	var _ Observer = NoopObserver{}
}

func TestRecorderOverridesSelectively(t *testing.T) {
	r := &Recorder{}
	r.ApplyingPatch("fix-foo")
	r.Applied("fix-foo")
	r.FileAdded("foo.c", "fix-foo") // falls through to NoopObserver, does not panic

	assert.Equal(t, []string{"applying_patch:fix-foo", "applied:fix-foo"}, r.Events)
}
