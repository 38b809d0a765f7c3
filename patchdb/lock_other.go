//go:build !unix

package patchdb

// Lock is a no-op stand-in on platforms without flock(2). The CORE engine
// does not depend on cross-process locking; see AcquireLock.
type Lock struct{}

// AcquireLock always succeeds on non-unix platforms; there is no advisory
// locking primitive to take.
func AcquireLock(pcDir string) (*Lock, error) {
	return &Lock{}, nil
}

// Release is a no-op.
func (l *Lock) Release() error {
	return nil
}
