package logstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
)

// WatermarkStore appends to a single file until it holds keepHard records and
// then compacts it down to keepSoft records in one pass, so the cost of copying
// is spread over keepHard-keepSoft cheap appends.
type WatermarkStore struct {
	// name labels metrics and log lines.
	name string
	// path is the live file; path+TempSuffix is the compaction target.
	path string
	// keepSoft is the number of records kept by a compaction, before the new one.
	keepSoft int
	// keepHard is the capacity.
	keepHard int
	// count is the number of records in the live file.
	count int
	// mu serializes appends, compactions and reads.
	mu sync.Mutex
}

// OpenWatermark opens a watermark store, deleting any compaction file left by a
// crash and dropping an unterminated trailing record.
func OpenWatermark(ctx context.Context, name, path string, keepSoft, keepHard int) (*WatermarkStore, error) {
	if keepSoft < 0 || keepHard <= keepSoft {
		return nil, fmt.Errorf("%s: soft %d, hard %d: %w", name, keepSoft, keepHard, ErrInvalidCapacity)
	}

	s := &WatermarkStore{
		name:     name,
		path:     filepath.Clean(path),
		keepSoft: keepSoft,
		keepHard: keepHard,
	}

	tmp := s.tempPath()
	if err := os.Remove(tmp); err == nil {
		logger.WarnKV(ctx, "Removed stale compaction file", "store", name, "path", tmp)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, storageErr("remove", tmp, err)
	}

	if err := repairTail(s.path); err != nil {
		return nil, err
	}

	count, err := countFileLines(s.path)
	if err != nil {
		return nil, err
	}

	s.count = count

	logger.DebugKV(ctx, "Watermark store opened",
		"store", name, "path", s.path, "count", count, "keep_soft", keepSoft, "keep_hard", keepHard)

	return s, nil
}

// Append adds record, compacting first when the hard watermark is reached.
func (s *WatermarkStore) Append(ctx context.Context, record string) (err error) {
	if err = validateRecord(record); err != nil {
		return err
	}

	started := time.Now()
	defer func() {
		observe(s.name, started, err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count < s.keepHard {
		if err = appendLine(s.path, record); err != nil {
			return err
		}

		s.count++

		return nil
	}

	kept, err := s.compact(record)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Store compacted", "store", s.name, "before", s.count, "after", kept)
	metrics.IncMaintenance(s.name, "compaction")

	s.count = kept

	return nil
}

// compact writes the newest keepSoft records plus record into the temp file,
// flushes it and renames it over the live file. It returns the new count.
func (s *WatermarkStore) compact(record string) (int, error) {
	tmp := s.tempPath()

	src, err := os.Open(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, storageErr("open", s.path, err)
	}

	if src != nil {
		defer func() {
			_ = src.Close()
		}()
	}

	dst, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, DefaultFileMode)
	if err != nil {
		return 0, storageErr("open", tmp, err)
	}

	fail := func(op, path string, cause error) (int, error) {
		_ = dst.Close()
		_ = os.Remove(tmp)

		return 0, storageErr(op, path, cause)
	}

	var (
		skip    = s.count - s.keepSoft
		skipped int
		kept    int
		w       = bufio.NewWriter(dst)
	)

	if src != nil {
		r := bufio.NewReader(src)

		for skipped < skip {
			_, rerr := r.ReadSlice('\n')
			if errors.Is(rerr, bufio.ErrBufferFull) {
				continue
			}

			if errors.Is(rerr, io.EOF) {
				break
			}

			if rerr != nil {
				return fail("read", s.path, rerr)
			}

			skipped++
		}

		for {
			line, rerr := r.ReadBytes('\n')
			if len(line) > 0 {
				if line[len(line)-1] != '\n' {
					line = append(line, '\n')
				}

				if _, err = w.Write(line); err != nil {
					return fail("write", tmp, err)
				}

				kept++
			}

			if errors.Is(rerr, io.EOF) {
				break
			}

			if rerr != nil {
				return fail("read", s.path, rerr)
			}
		}
	}

	if _, err = w.WriteString(record + "\n"); err != nil {
		return fail("write", tmp, err)
	}

	kept++

	if err = w.Flush(); err != nil {
		return fail("write", tmp, err)
	}

	if err = dst.Sync(); err != nil {
		return fail("sync", tmp, err)
	}

	if err = dst.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, storageErr("close", tmp, err)
	}

	// Rename replaces the live file in one step; readers see old or new content.
	if err = os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return 0, storageErr("rename", tmp, err)
	}

	return kept, nil
}

// Count implements Store.
func (s *WatermarkStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.count
}

// Capacity implements Store.
func (s *WatermarkStore) Capacity() int {
	return s.keepHard
}

// Path implements Store.
func (s *WatermarkStore) Path() string {
	return s.path
}

// Records implements Store, oldest first.
func (s *WatermarkStore) Records(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return readLines(s.path)
}

func (s *WatermarkStore) tempPath() string {
	return s.path + TempSuffix
}
