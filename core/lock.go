// Copyright 2015 Comcast Cable Communications Management, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// End Copyright

package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// SingleWriterLock is the advisory lock file backing a running
// scheduler process. No example in the retrieved pack guards a
// single-writer invariant this way, so this is a stdlib-only
// implementation: an O_EXCL pid file plus a liveness check on the
// previous holder, the same technique daemontools-style Unix services
// use and one that needs no third-party client.
type SingleWriterLock struct {
	path string
}

// AcquireSingleWriterLock creates path as an exclusive pid file. If
// path already exists and names a live process, it returns a
// non-nil error describing the conflict. If it exists but names a
// process that is no longer running, the stale file is replaced and
// the lock is acquired normally.
func AcquireSingleWriterLock(path string) (*SingleWriterLock, error) {
	if err := tryCreateLockFile(path); err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("single-writer lock %s: %w", path, err)
		}
		holder, rerr := readLockFile(path)
		if rerr == nil && pidIsLive(holder) {
			return nil, fmt.Errorf("single-writer lock %s held by pid %d", path, holder)
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("single-writer lock %s: removing stale holder: %w", path, err)
		}
		if err := tryCreateLockFile(path); err != nil {
			return nil, fmt.Errorf("single-writer lock %s: %w", path, err)
		}
	}
	return &SingleWriterLock{path: path}, nil
}

// Release removes the lock file. Callers should defer it for the
// lifetime of the process that acquired the lock.
func (l *SingleWriterLock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func tryCreateLockFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	return err
}

func readLockFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// pidIsLive reports whether pid names a running process, by sending
// it the null signal per kill(2) semantics.
func pidIsLive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
