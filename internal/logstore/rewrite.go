package logstore

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
)

// RewriteStore keeps a small file rewritten wholesale on every append.
// Cost is O(file size) per append, so it suits short logs such as the audit trail.
type RewriteStore struct {
	// name labels metrics and log lines.
	name string
	// path is the live file.
	path string
	// capacity is the maximum number of retained lines.
	capacity int
	// policy decides where new records go and which end survives trimming.
	policy Policy
	// count is the number of lines currently in the live file.
	count int
	// mu serializes appends and reads.
	mu sync.Mutex
}

// OpenRewrite opens (or prepares) a rewrite store and recovers its count.
// Leftovers of an interrupted swap are cleaned up first.
func OpenRewrite(ctx context.Context, name, path string, capacity int, policy Policy) (*RewriteStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%s: capacity %d: %w", name, capacity, ErrInvalidCapacity)
	}

	s := &RewriteStore{
		name:     name,
		path:     filepath.Clean(path),
		capacity: capacity,
		policy:   policy,
	}

	if err := s.recoverSwap(ctx); err != nil {
		return nil, err
	}

	count, err := countFileLines(s.path)
	if err != nil {
		return nil, err
	}

	s.count = count

	logger.DebugKV(ctx, "Rewrite store opened",
		"store", name, "path", s.path, "count", count, "capacity", capacity, "policy", policy.String())

	return s, nil
}

// Append adds record according to the store policy and trims to capacity.
func (s *RewriteStore) Append(_ context.Context, record string) (err error) {
	if err = validateRecord(record); err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		observe(s.name, started, err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageErr("read", s.path, err)
	}

	var next []byte

	switch s.policy {
	case KeepNewest:
		next = make([]byte, 0, len(record)+1+len(current))
		next = append(next, record...)
		next = append(next, '\n')
		next = append(next, current...)
		next = TrimNewest(next, s.capacity)
	default:
		next = make([]byte, 0, len(current)+len(record)+2)
		next = append(next, current...)

		if len(next) > 0 && next[len(next)-1] != '\n' {
			next = append(next, '\n')
		}

		next = append(next, record...)
		next = append(next, '\n')
		next = TrimLast(next, s.capacity)
	}

	if err = s.replace(next); err != nil {
		return err
	}

	count := countLines(next)
	if count < s.count+1 {
		metrics.IncMaintenance(s.name, "trim")
	}

	s.count = count

	return nil
}

// Count implements Store.
func (s *RewriteStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.count
}

// Capacity implements Store.
func (s *RewriteStore) Capacity() int {
	return s.capacity
}

// Path implements Store.
func (s *RewriteStore) Path() string {
	return s.path
}

// Records implements Store. KeepNewest stores return newest first.
func (s *RewriteStore) Records(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return readLines(s.path)
}

// Contents returns the raw file, used to serve the audit trail as text.
func (s *RewriteStore) Contents(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, storageErr("read", s.path, err)
	}

	return data, nil
}

// replace swaps the live file for data. go-update writes data next to the
// target, verifies its checksum and renames it over the live file.
func (s *RewriteStore) replace(data []byte) error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		// The swap renames the live file aside first, so it must exist.
		if err = os.WriteFile(s.path, nil, DefaultFileMode); err != nil {
			return storageErr("create", s.path, err)
		}
	}

	checksum := sha256.Sum256(data)

	options := goupdate.Options{
		TargetPath: s.path,
		TargetMode: DefaultFileMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return storageErr("replace", s.path, err)
	}

	return nil
}

// recoverSwap removes a half-written replacement and restores a live file that
// was moved aside right before a crash.
func (s *RewriteStore) recoverSwap(ctx context.Context) error {
	dir, base := filepath.Split(s.path)
	newPath := filepath.Join(dir, "."+base+".new")
	oldPath := filepath.Join(dir, "."+base+".old")

	if err := os.Remove(newPath); err == nil {
		logger.WarnKV(ctx, "Removed interrupted replacement", "store", s.name, "path", newPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return storageErr("remove", newPath, err)
	}

	if _, err := os.Stat(oldPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return storageErr("stat", oldPath, err)
	}

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err = os.Rename(oldPath, s.path); err != nil {
			return storageErr("rename", oldPath, err)
		}

		logger.WarnKV(ctx, "Restored live file from interrupted swap", "store", s.name, "path", s.path)

		return nil
	}

	if err := os.Remove(oldPath); err != nil {
		return storageErr("remove", oldPath, err)
	}

	return nil
}
