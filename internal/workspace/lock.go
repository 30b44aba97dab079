// Package workspace guards a target tree against interleaved writers.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

const lockFileName = ".patchvet.lock"

// Lock is an exclusive advisory lock on a tree root, held while a real
// (non-dry-run) application runs. Dry runs never take it: they own their
// in-memory copies exclusively. The engine offers no cross-call mutual
// exclusion beyond this; serializing real applies per tree is the caller's
// job, and this lock is the tool for it.
type Lock struct {
	file     *os.File
	lockPath string
	mu       sync.Mutex
}

// AcquireLock takes an exclusive flock on the tree root, without blocking.
// It fails when another process already holds the lock.
func AcquireLock(treeRoot string) (*Lock, error) {
	lockPath := filepath.Join(treeRoot, lockFileName)

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("create tree lock file: %w", err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("tree %q is being patched by another process", treeRoot)
	}

	lockFile.Truncate(0)
	lockFile.Seek(0, 0)
	fmt.Fprintf(lockFile, "%d\n", os.Getpid())

	return &Lock{file: lockFile, lockPath: lockPath}, nil
}

// Release drops the lock and removes the lock file. Safe to call twice.
func (l *Lock) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	os.Remove(l.lockPath)
	l.file = nil
}
