package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquire_WritesOwner(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("Path() = %q", lock.Path())
	}
	owner := readOwner(lock.Path())
	if owner.PID != os.Getpid() {
		t.Errorf("owner PID = %d, want %d", owner.PID, os.Getpid())
	}
	if owner.Started == "" {
		t.Error("owner start time not recorded")
	}
}

func TestAcquire_Conflict(t *testing.T) {
	dir := t.TempDir()

	lock1, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock1.Release()

	lock2, err := Acquire(dir)
	if err == nil {
		lock2.Release()
		t.Fatal("second Acquire should fail")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockError, got %T", err)
	}
	if lockErr.Owner.PID != os.Getpid() {
		t.Errorf("conflict should report the holder's PID, got %d", lockErr.Owner.PID)
	}
	msg := err.Error()
	if !strings.Contains(msg, "another SwiftShowings instance") || !strings.Contains(msg, dir) {
		t.Errorf("unhelpful error message: %s", msg)
	}
}

func TestRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed, stat err = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	again.Release()
}

func TestAcquire_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lock.Release()

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("state directory not created: %v", err)
	}
}

func TestParseOwner(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Owner
	}{
		{"pid and start", "pid=12345\nstarted=2024-03-01T09:00:00Z\n", Owner{PID: 12345, Started: "2024-03-01T09:00:00Z"}},
		{"pid only", "pid=67890\n", Owner{PID: 67890}},
		{"unknown keys", "host=box\npid=42", Owner{PID: 42}},
		{"empty", "", Owner{}},
		{"invalid pid", "pid=abc", Owner{}},
		{"negative pid", "pid=-1", Owner{}},
		{"no separator", "pid12345", Owner{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseOwner(tt.content); got != tt.want {
				t.Errorf("parseOwner(%q) = %+v, want %+v", tt.content, got, tt.want)
			}
		})
	}
}

func TestOwnerString(t *testing.T) {
	if got := (Owner{}).String(); got != "unknown process" {
		t.Errorf("empty owner = %q", got)
	}
	self := Owner{PID: os.Getpid()}
	if got := self.String(); got != fmt.Sprintf("PID %d (running)", os.Getpid()) {
		t.Errorf("self owner = %q", got)
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("own process should be alive")
	}
}
