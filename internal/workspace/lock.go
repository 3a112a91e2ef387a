package workspace

import (
	"github.com/gofrs/flock"

	"github.com/faughnn/factreel/internal/core"
)

type lockHandle struct {
	fl *flock.Flock
}

// Lock acquires the non-blocking episode lock (§5: "Lock acquisition is
// non-blocking and fails fast with WorkspaceBusy"). Released by Unlock,
// normally deferred immediately after a successful Lock call.
func (w *Workspace) Lock() error {
	fl := flock.New(w.PathOf(lockFileName))
	ok, err := fl.TryLock()
	if err != nil {
		return &core.IOError{Op: "lock", Path: fl.Path(), Err: err}
	}
	if !ok {
		return &core.WorkspaceBusy{Path: fl.Path()}
	}
	w.lock = &lockHandle{fl: fl}
	return nil
}

// Unlock releases the episode lock acquired by Lock. Safe to call on a
// Workspace that never locked successfully.
func (w *Workspace) Unlock() error {
	if w.lock == nil {
		return nil
	}
	return w.lock.fl.Unlock()
}
