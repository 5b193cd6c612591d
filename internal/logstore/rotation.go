package logstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
)

// RotationStore keeps records in a directory of numbered files. File 0 takes
// all writes; once it is full the files are shifted up by one index and the
// oldest one is dropped. Rotation only renames and removes, it never reads.
type RotationStore struct {
	// name labels metrics and log lines.
	name string
	// dir holds files named 0, 1, ... files-1.
	dir string
	// files is the number of retained files.
	files int
	// perFile is the line cap of each file.
	perFile int
	// counts maps file index to its line count.
	counts map[int]int
	// mu serializes appends, rotations and reads.
	mu sync.Mutex
}

// OpenRotation opens (creating if needed) a rotation directory and recovers
// per-file counts.
func OpenRotation(ctx context.Context, name, dir string, files, perFile int) (*RotationStore, error) {
	if files <= 0 || perFile <= 0 {
		return nil, fmt.Errorf("%s: files %d, per file %d: %w", name, files, perFile, ErrInvalidCapacity)
	}

	s := &RotationStore{
		name:    name,
		dir:     filepath.Clean(dir),
		files:   files,
		perFile: perFile,
	}

	if err := os.MkdirAll(s.dir, DefaultDirMode); err != nil {
		return nil, storageErr("mkdir", s.dir, err)
	}

	if err := repairTail(s.filePath(0)); err != nil {
		return nil, err
	}

	if err := s.reload(); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Rotation store opened",
		"store", name, "dir", s.dir, "files", len(s.counts), "count", s.total(), "capacity", s.Capacity())

	return s, nil
}

// Append writes record to file 0, rotating first when it is full.
func (s *RotationStore) Append(ctx context.Context, record string) (err error) {
	if err = validateRecord(record); err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		observe(s.name, started, err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counts[0] >= s.perFile {
		if err = s.rotate(); err != nil {
			// A partial rotation leaves the directory consistent but the
			// in-memory view stale, so rescan it before reporting.
			if rerr := s.reload(); rerr != nil {
				logger.ErrorKV(ctx, "Rescan after failed rotation", "store", s.name, "error", rerr)
			}

			return err
		}

		logger.DebugKV(ctx, "Store rotated", "store", s.name, "count", s.total())
		metrics.IncMaintenance(s.name, "rotation")
	}

	if err = appendLine(s.filePath(0), record); err != nil {
		return err
	}

	s.counts[0]++

	return nil
}

// rotate drops files at index files-1 and above and renames the rest upward,
// highest index first so no rename overwrites an unmoved file.
func (s *RotationStore) rotate() error {
	indices := s.indicesDesc()

	for _, i := range indices {
		if i < s.files-1 {
			continue
		}

		path := s.filePath(i)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return storageErr("remove", path, err)
		}

		delete(s.counts, i)
	}

	for _, i := range indices {
		if i >= s.files-1 {
			continue
		}

		from, to := s.filePath(i), s.filePath(i+1)
		if err := os.Rename(from, to); err != nil {
			return storageErr("rename", from, err)
		}

		s.counts[i+1] = s.counts[i]
		delete(s.counts, i)
	}

	return nil
}

// reload rebuilds counts from the directory listing.
func (s *RotationStore) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return storageErr("readdir", s.dir, err)
	}

	counts := make(map[int]int, s.files)

	for _, entry := range entries {
		index, ok := parseIndex(entry.Name())
		if !ok || entry.IsDir() {
			continue
		}

		n, err := countFileLines(s.filePath(index))
		if err != nil {
			return err
		}

		counts[index] = n
	}

	s.counts = counts

	return nil
}

// Count implements Store.
func (s *RotationStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total()
}

// Capacity implements Store.
func (s *RotationStore) Capacity() int {
	return s.files * s.perFile
}

// Path implements Store.
func (s *RotationStore) Path() string {
	return s.dir
}

// Files returns the number of files currently on disk.
func (s *RotationStore) Files() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.counts)
}

// Records implements Store, oldest file first.
func (s *RotationStore) Records(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []string

	for _, i := range s.indicesDesc() {
		lines, err := readLines(s.filePath(i))
		if err != nil {
			return nil, err
		}

		records = append(records, lines...)
	}

	return records, nil
}

func (s *RotationStore) total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}

	return n
}

func (s *RotationStore) indicesDesc() []int {
	indices := make([]int, 0, len(s.counts))
	for i := range s.counts {
		indices = append(indices, i)
	}

	slices.Sort(indices)
	slices.Reverse(indices)

	return indices
}

func (s *RotationStore) filePath(index int) string {
	return filepath.Join(s.dir, strconv.Itoa(index))
}

// parseIndex accepts canonical non-negative decimal names only ("7", not "07").
func parseIndex(name string) (int, bool) {
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || strconv.Itoa(n) != name {
		return 0, false
	}

	return n, true
}
