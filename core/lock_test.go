package core

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireSingleWriterLockThenRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs-scheduler.lock")
	lock, err := AcquireSingleWriterLock(path)
	if err != nil {
		t.Fatalf("AcquireSingleWriterLock: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("want lock file on disk: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("want lock file removed after Release")
	}
}

func TestAcquireSingleWriterLockRejectsLiveHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs-scheduler.lock")
	first, err := AcquireSingleWriterLock(path)
	if err != nil {
		t.Fatalf("AcquireSingleWriterLock: %v", err)
	}
	defer first.Release()

	if _, err := AcquireSingleWriterLock(path); err == nil {
		t.Fatal("expected second acquire against a live holder to fail")
	}
}

func TestAcquireSingleWriterLockReclaimsStaleHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecs-scheduler.lock")
	// A pid no live process will hold: write it directly rather than
	// going through AcquireSingleWriterLock, to simulate a holder that
	// crashed without cleaning up its lock file.
	if err := os.WriteFile(path, []byte(strconv.Itoa(deadPidForTest)+"\n"), 0644); err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}

	lock, err := AcquireSingleWriterLock(path)
	if err != nil {
		t.Fatalf("want stale holder reclaimed, got error: %v", err)
	}
	lock.Release()
}

// deadPidForTest is a pid astronomically unlikely to be live on any
// system running this test.
const deadPidForTest = 1 << 30
