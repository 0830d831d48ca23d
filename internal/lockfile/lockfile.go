// Package lockfile keeps two SwiftShowings processes from sharing one state
// directory. The lock is an flock(2) on a file inside the directory, so the
// kernel drops it when the holder exits, cleanly or not.
package lockfile

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory.
const LockFileName = "swiftshowings.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID     int
	Started string
}

// String renders the owner for error messages.
func (o Owner) String() string {
	if o.PID <= 0 {
		return "unknown process"
	}
	state := "running"
	if !processAlive(o.PID) {
		state = "not running, stale lock"
	}
	if o.Started != "" {
		return fmt.Sprintf("PID %d (%s, started %s)", o.PID, state, o.Started)
	}
	return fmt.Sprintf("PID %d (%s)", o.PID, state)
}

// LockError is returned when another process holds the lock.
type LockError struct {
	LockPath string
	Owner    Owner
	Cause    error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("another SwiftShowings instance is already using this state directory\n"+
		"lock file: %s\nheld by: %s\n"+
		"if no other instance is running, remove the lock file with: rm %s",
		e.LockPath, e.Owner, e.LockPath)
}

func (e *LockError) Unwrap() error { return e.Cause }

// Acquire takes an exclusive, non-blocking lock on stateDir, creating the
// directory if needed.
func Acquire(stateDir string) (*Lock, error) {
	path := filepath.Join(stateDir, LockFileName)
	slog.Debug("lockfile.Acquire: acquiring state directory lock", "path", path)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", stateDir, err)
	}
	// No O_TRUNC: a failed attempt must leave the owner's details readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		owner := readOwner(path)
		slog.Error("lockfile.Acquire: state directory is locked", "path", path, "owner", owner.String())
		return nil, &LockError{LockPath: path, Owner: owner, Cause: err}
	}

	if err := writeOwner(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("write lock file %s: %w", path, err)
	}

	slog.Info("lockfile.Acquire: state directory locked", "path", path, "pid", os.Getpid())
	return &Lock{file: f, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and removes the lock file. Calling it twice is harmless.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Error("Lock.Release: failed to unlock", "path", l.path, "error", err)
	}
	if err := l.file.Close(); err != nil {
		slog.Error("Lock.Release: failed to close lock file", "path", l.path, "error", err)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lock.Release: failed to remove lock file", "path", l.path, "error", err)
	}
	l.file = nil
	slog.Info("Lock.Release: state directory unlocked", "path", l.path)
	return nil
}

func writeOwner(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\nstarted=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		slog.Warn("lockfile.writeOwner: sync failed", "error", err)
	}
	return nil
}

func readOwner(path string) Owner {
	data, err := os.ReadFile(path)
	if err != nil {
		return Owner{}
	}
	return parseOwner(string(data))
}

// parseOwner reads key=value lines. Unknown keys and malformed values are ignored.
func parseOwner(content string) Owner {
	var o Owner
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
				o.PID = pid
			}
		case "started":
			o.Started = value
		}
	}
	return o
}

// processAlive sends signal 0, which checks existence without delivering anything.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
