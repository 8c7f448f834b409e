package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"kite-futures-bot/internal/interfaces"
	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/types"
)

const (
	lockRetryInterval = 50 * time.Millisecond
	lockTimeout       = 5 * time.Second
)

// ErrLockTimeout is returned when the sibling lock marker could not be
// acquired within the timeout, meaning another writer is stuck or crashed
// without cleanup.
var ErrLockTimeout = errors.New("state lock timeout")

// PositionStore owns the durable copy of the single Position record. All
// access goes through Load, Save and Clear; the record is never mutated in
// place across package boundaries. Writes are serialized in-process by a
// mutex and across processes by a sibling lock marker file.
type PositionStore struct {
	path   string
	mu     sync.Mutex
	mirror interfaces.Mirror
}

// NewPositionStore creates a store backed by the given file path. mirror may
// be nil, in which case no remote copy is kept.
func NewPositionStore(path string, mirror interfaces.Mirror) *PositionStore {
	return &PositionStore{path: path, mirror: mirror}
}

// Path returns the durable file location.
func (s *PositionStore) Path() string {
	return s.path
}

// Load reads the persisted Position. An absent file means no position, not
// an error. A record that fails its own invariants is rejected.
func (s *PositionStore) Load(ctx context.Context) (types.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquireLock()
	if err != nil {
		return types.EmptyPosition(), err
	}
	defer unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.EmptyPosition(), nil
		}
		return types.EmptyPosition(), fmt.Errorf("read position state: %w", err)
	}

	var pos types.Position
	if err := json.Unmarshal(b, &pos); err != nil {
		return types.EmptyPosition(), fmt.Errorf("decode position state: %w", err)
	}
	if !pos.Invariant() {
		return pos, fmt.Errorf("position state violates invariants: %+v", pos)
	}

	return pos, nil
}

// Save persists the Position atomically and mirrors it to remote backup.
// The local write must succeed; the mirror upload is best-effort and its
// failure is logged, never returned.
func (s *PositionStore) Save(ctx context.Context, pos types.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.acquireLock()
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.write(pos); err != nil {
		return err
	}
	s.uploadMirror(ctx)
	return nil
}

// Clear resets the record to its inactive defaults, persists and mirrors it.
func (s *PositionStore) Clear(ctx context.Context) error {
	return s.Save(ctx, types.EmptyPosition())
}

func (s *PositionStore) write(pos types.Position) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	b, err := json.MarshalIndent(pos, "", "  ")
	if err != nil {
		return fmt.Errorf("encode position state: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn record.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write position state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("commit position state: %w", err)
	}
	return nil
}

func (s *PositionStore) uploadMirror(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Upload(ctx, s.path); err != nil {
		logger.Warn(ctx, "State backup upload failed", "path", s.path, "error", err)
	}
}

// acquireLock takes the advisory lock marker next to the state file. The
// caller must invoke the returned func on every exit path.
func (s *PositionStore) acquireLock() (func(), error) {
	lockPath := s.path + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	deadline := time.Now().Add(lockTimeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire state lock: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %s held too long", ErrLockTimeout, lockPath)
		}
		time.Sleep(lockRetryInterval)
	}
}
