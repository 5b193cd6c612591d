package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/boiler-alarm/internal/logger"
)

// PIDFilename is the instance marker inside the data directory.
const PIDFilename = "boiler-monitor.pid"

// ErrAlreadyRunning is returned when a live monitor owns the data directory.
var ErrAlreadyRunning = errors.New("another monitor instance is running")

// Lock is a pid file guarding the data directory.
type Lock struct {
	path string
	pid  int
}

// AcquireLock writes the current pid to path. A pid file left by a process
// that is gone, or that now runs another executable, is treated as stale.
// executable is the process name that counts as a rival instance.
func AcquireLock(ctx context.Context, path, executable string) (*Lock, error) {
	path = filepath.Clean(path)
	self := os.Getpid()

	data, err := os.ReadFile(path)

	switch {
	case err == nil:
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil && pid != self {
			process, ferr := ps.FindProcess(pid)
			if ferr != nil {
				return nil, fmt.Errorf("inspect pid %d: %w", pid, ferr)
			}

			if process != nil && process.Executable() == executable {
				return nil, fmt.Errorf("%w: pid %d", ErrAlreadyRunning, pid)
			}
		}

		logger.InfoKV(ctx, "Replacing stale pid file", "path", path, "contents", strings.TrimSpace(string(data)))
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read pid file: %w", err)
	}

	if err = os.WriteFile(path, []byte(strconv.Itoa(self)+"\n"), 0o644); err != nil { //nolint:gosec // pid files are world-readable.
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	return &Lock{path: path, pid: self}, nil
}

// Release removes the pid file if it still names this process.
func (l *Lock) Release(ctx context.Context) {
	if l == nil {
		return
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}

	if strings.TrimSpace(string(data)) != strconv.Itoa(l.pid) {
		logger.WarnKV(ctx, "Pid file taken over, leaving it", "path", l.path)
		return
	}

	if err = os.Remove(l.path); err != nil {
		logger.WarnKV(ctx, "Failed to remove pid file", "path", l.path, "error", err)
	}
}

// selfExecutable returns the process name go-ps reports for this process.
func selfExecutable() string {
	if process, err := ps.FindProcess(os.Getpid()); err == nil && process != nil {
		return process.Executable()
	}

	return filepath.Base(os.Args[0])
}
