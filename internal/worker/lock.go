package worker

import (
	"errors"
	"os"
)

// ErrLocked is returned by TryLock when another process holds the lock.
var ErrLocked = errors.New("another worker is already running")

// InstanceLock keeps two watch loops from claiming the same project.
// Platform-specific implementations are in lock_unix.go and lock_windows.go.
type InstanceLock struct {
	path string
	f    *os.File
}

// NewInstanceLock creates a lock backed by the file at path.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path}
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string { return l.path }
