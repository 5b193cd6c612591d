package logstore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oshokin/boiler-alarm/internal/metrics"
)

// Store is an append-only, capacity-capped persistent record store.
type Store interface {
	// Append persists one record. On error the count is unchanged.
	Append(ctx context.Context, record string) error
	// Count returns the number of retained records.
	Count() int
	// Capacity returns the maximum number of retained records.
	Capacity() int
	// Path returns the file or directory backing the store.
	Path() string
	// Records returns the retained records in persisted order.
	Records(ctx context.Context) ([]string, error)
}

const (
	// DefaultFileMode is used for every file a store creates.
	DefaultFileMode os.FileMode = 0o644
	// DefaultDirMode is used for rotation directories.
	DefaultDirMode os.FileMode = 0o755
	// TempSuffix marks compaction files next to the live file.
	TempSuffix = ".temp"
)

var (
	// ErrInvalidRecord is returned for records that would break line framing.
	ErrInvalidRecord = errors.New("record must be a single line")
	// ErrInvalidCapacity is returned when a store is opened with unusable limits.
	ErrInvalidCapacity = errors.New("invalid store capacity")
)

// StorageError reports a failed filesystem operation.
type StorageError struct {
	// Op is the operation that failed (open, read, write, sync, rename, remove).
	Op string
	// Path is the file the operation was applied to.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorageError reports whether err carries a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError

	return errors.As(err, &se)
}

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

func validateRecord(record string) error {
	if strings.ContainsAny(record, "\r\n") {
		return ErrInvalidRecord
	}

	return nil
}

// countLines counts newline-terminated lines; a trailing unterminated line counts too.
func countLines(data []byte) int {
	n := bytes.Count(data, []byte{'\n'})
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}

	return n
}

// countFileLines counts lines in the file at path; a missing file has zero lines.
func countFileLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, storageErr("open", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	var (
		n     int
		total int
		last  byte
		buf   = make([]byte, 32*1024)
	)

	for {
		read, rerr := f.Read(buf)
		if read > 0 {
			n += bytes.Count(buf[:read], []byte{'\n'})
			total += read
			last = buf[read-1]
		}

		if errors.Is(rerr, io.EOF) {
			break
		}

		if rerr != nil {
			return 0, storageErr("read", path, rerr)
		}
	}

	if total > 0 && last != '\n' {
		n++
	}

	return n, nil
}

// readLines returns the lines of the file at path without terminators.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, storageErr("open", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	var lines []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if err = scanner.Err(); err != nil {
		return nil, storageErr("read", path, err)
	}

	return lines, nil
}

// appendLine appends record plus a newline in a single write. A short or failed
// write is truncated back so no partial record stays visible.
func appendLine(path, record string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, DefaultFileMode)
	if err != nil {
		return storageErr("open", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return storageErr("stat", path, err)
	}

	if _, err = f.WriteString(record + "\n"); err != nil {
		_ = f.Truncate(info.Size())
		_ = f.Close()

		return storageErr("write", path, err)
	}

	if err = f.Close(); err != nil {
		return storageErr("close", path, err)
	}

	return nil
}

// repairTail drops an unterminated last line left by an interrupted append.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return storageErr("open", path, err)
	}

	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return storageErr("stat", path, err)
	}

	const chunk = 4096

	var (
		end = info.Size()
		buf = make([]byte, chunk)
	)

	for pos := end; pos > 0; {
		size := int64(chunk)
		if pos < size {
			size = pos
		}

		pos -= size

		if _, err = f.ReadAt(buf[:size], pos); err != nil && !errors.Is(err, io.EOF) {
			return storageErr("read", path, err)
		}

		idx := bytes.LastIndexByte(buf[:size], '\n')
		if idx < 0 {
			continue
		}

		keep := pos + int64(idx) + 1
		if keep == end {
			return nil
		}

		if err = f.Truncate(keep); err != nil {
			return storageErr("truncate", path, err)
		}

		return nil
	}

	if end == 0 {
		return nil
	}

	if err = f.Truncate(0); err != nil {
		return storageErr("truncate", path, err)
	}

	return nil
}

func observe(name string, started time.Time, err error) {
	metrics.ObserveAppend(name, err, time.Since(started))
}
