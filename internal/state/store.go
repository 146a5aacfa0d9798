package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/ehdev/toolup/internal/paths"
)

const (
	lockRetryAttempts = 10
	lockRetryDelay    = 100 * time.Millisecond
)

// Container is the session's view of the state document: the payload plus
// the optimistic-concurrency token it was read with.
type Container struct {
	Payload   InstalledState
	UpdatedAt *time.Time
}

// Store reads and writes the global state document under Paths.ConfigDir,
// guarding writes with a companion lock file.
type Store struct {
	paths  paths.Paths
	logger *slog.Logger
}

// New creates a Store rooted at p.
func New(p paths.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{paths: p, logger: logger}
}

// Load reads the state file. A missing file is not an error: it returns an
// empty container with UpdatedAt nil.
func (s *Store) Load() (Container, error) {
	env, err := s.readEnvelope()
	if err != nil {
		return Container{}, err
	}
	return Container{Payload: env.Payload, UpdatedAt: env.UpdatedAt}, nil
}

func (s *Store) readEnvelope() (envelope, error) {
	data, err := os.ReadFile(s.paths.StateFilePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyEnvelope(), nil
		}
		return envelope{}, fmt.Errorf("reading state file: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("parsing state file: %w", err)
	}
	if err := env.checkVersion(); err != nil {
		return envelope{}, err
	}
	if env.Payload.InstalledPackages == nil {
		env.Payload = env.Payload.clone()
	}
	return env, nil
}

// Save commits c to disk under the state-file lock protocol:
//
//  1. open-or-create the lock file
//  2. attempt an exclusive advisory lock, retrying up to 10 times at 100ms
//  3. on success, truncate the lock file and write PID + explanation
//  4. re-read on-disk state and compare its updated-at against c.UpdatedAt;
//     a mismatch means a concurrent writer committed first
//  5. stamp a new updated-at, serialize, overwrite the file
//  6. delete the lock file and release the lock
//
// The returned Container is freshly re-read from disk, so the caller sees
// the new updated-at.
func (s *Store) Save(c Container) (Container, error) {
	lockPath := s.paths.LockFilePath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return Container{}, fmt.Errorf("preparing lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	locked, err := acquireWithRetry(fl)
	if err != nil {
		return Container{}, err
	}
	if !locked {
		return Container{}, &UnableToObtainLockError{Path: lockPath}
	}
	defer func() {
		_ = fl.Unlock()
		_ = os.Remove(lockPath)
	}()

	if err := writeLockMarker(lockPath); err != nil {
		return Container{}, fmt.Errorf("writing lock marker: %w", err)
	}

	onDisk, err := s.readEnvelope()
	if err != nil {
		return Container{}, err
	}
	if !timesEqual(onDisk.UpdatedAt, c.UpdatedAt) {
		return Container{}, &StateFileOutOfDateError{Expected: c.UpdatedAt, Found: onDisk.UpdatedAt}
	}

	now := time.Now().UTC()
	env := envelope{Version: schemaVersion, UpdatedAt: &now, Payload: c.Payload}

	if err := os.MkdirAll(s.paths.ConfigDir, 0o755); err != nil {
		return Container{}, fmt.Errorf("preparing config directory: %w", err)
	}
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return Container{}, fmt.Errorf("serializing state file: %w", err)
	}
	if err := os.WriteFile(s.paths.StateFilePath(), data, 0o644); err != nil {
		return Container{}, fmt.Errorf("writing state file: %w", err)
	}

	saved, err := s.readEnvelope()
	if err != nil {
		return Container{}, err
	}
	return Container{Payload: saved.Payload, UpdatedAt: saved.UpdatedAt}, nil
}

func acquireWithRetry(fl *flock.Flock) (bool, error) {
	for attempt := 0; attempt < lockRetryAttempts; attempt++ {
		locked, err := fl.TryLock()
		if err != nil {
			return false, fmt.Errorf("acquiring lock: %w", err)
		}
		if locked {
			return true, nil
		}
		time.Sleep(lockRetryDelay)
	}
	return false, nil
}

func writeLockMarker(lockPath string) error {
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "pid=%d\nheld since %s: writing toolup global state\n",
		os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	return err
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
