// Package lock provides per-project mutual exclusion for index scans. A
// scan holds the lock for its entire duration (§5), so the row store and
// vector store never need their own in-process locking.
//
// Two layers cooperate: github.com/gofrs/flock gives an OS-level advisory
// lock (the same primitive the teacher's internal/embed.FileLock uses to
// serialize model downloads), and this package layers a JSON
// {pid,timestamp,operation} payload on top so a crashed holder's lock can
// be detected and reclaimed without relying on OS lock release semantics
// alone (an OS lock is released on process exit, but the JSON payload is
// what lets a waiter explain *why* a lock looked stale and recover the
// 5-minute TTL / liveness-probe semantics spec §4.10 requires).
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// StaleTTL is how long a lock can go unrefreshed before it's considered
// abandoned regardless of whether its PID is alive.
const StaleTTL = 5 * time.Minute

// WaitTimeout is how long Acquire waits for a contended lock before
// giving up.
const WaitTimeout = 30 * time.Second

// PollInterval is how often Acquire re-probes a contended lock.
const PollInterval = 100 * time.Millisecond

// Payload is the JSON document written into the lock file.
type Payload struct {
	PID       int       `json:"pid"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
}

// Lock is a held per-project file lock. Release it when the operation
// completes.
type Lock struct {
	path    string
	flock   *flock.Flock
	payload Payload
}

// Path returns the lock file's path inside dataDir: <dataDir>/index.lock.
// The CLI commands pass <project root>/.contextweaver as dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "index.lock")
}

// Acquire waits up to WaitTimeout, probing every PollInterval, for the
// lock at dataDir to become available, then writes this process's PID,
// current time, and operation name into it. After writing, it re-reads
// the file and verifies the stored PID matches this process, guarding
// against a race with a concurrent Acquire that wrote after us.
func Acquire(dataDir, operation string) (*Lock, error) {
	path := Path(dataDir)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(path)
	deadline := time.Now().Add(WaitTimeout)

	for {
		if stale, reason := isStale(path); !stale {
			_ = reason
		} else {
			// A stale lock's OS-level flock is usually already released
			// (the holder died), but on the off chance it isn't, remove
			// the payload file so a fresh write starts clean.
			_ = os.Remove(path)
		}

		locked, err := fl.TryLock()
		if err != nil {
			return nil, fmt.Errorf("try lock: %w", err)
		}
		if locked {
			break
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("lock contention: %s held after %s wait", path, WaitTimeout)
		}
		time.Sleep(PollInterval)
	}

	l := &Lock{
		path:  path,
		flock: fl,
		payload: Payload{
			PID:       os.Getpid(),
			Timestamp: time.Now(),
			Operation: operation,
		},
	}

	if err := l.write(); err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	// Re-read and verify ownership to guard against races: two processes
	// could both pass TryLock on platforms where advisory locks aren't
	// strictly exclusive across all filesystems (e.g. some network
	// mounts), so the JSON payload is the final word on who owns it.
	stored, err := read(path)
	if err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("verify lock ownership: %w", err)
	}
	if stored.PID != os.Getpid() {
		_ = fl.Unlock()
		return nil, fmt.Errorf("lock contention: %s claimed by pid %d during acquire", path, stored.PID)
	}

	return l, nil
}

func (l *Lock) write() error {
	data, err := json.Marshal(l.payload)
	if err != nil {
		return fmt.Errorf("encode lock payload: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// Release removes the lock file and releases the OS-level lock, but only
// if the stored PID still matches this process — protects against
// releasing a lock that a stale-detection path already reassigned to
// another process.
func (l *Lock) Release() error {
	stored, err := read(l.path)
	if err == nil && stored.PID == os.Getpid() {
		_ = os.Remove(l.path)
	}
	return l.flock.Unlock()
}

// Operation returns the operation name this lock was acquired for.
func (l *Lock) Operation() string { return l.payload.Operation }

func read(path string) (*Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// isStale reports whether the lock at path should be treated as
// abandoned: the file is absent, older than StaleTTL, or its PID is no
// longer alive.
func isStale(path string) (bool, string) {
	p, err := read(path)
	if err != nil {
		return true, "absent or unreadable"
	}
	if time.Since(p.Timestamp) > StaleTTL {
		return true, "ttl expired"
	}
	if !pidAlive(p.PID) {
		return true, "pid not alive"
	}
	return false, ""
}

// pidAlive probes a PID with signal 0, which on Unix performs existence
// and permission checks without actually delivering a signal.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
