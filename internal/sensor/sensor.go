// Package sensor reads the boiler temperature from the host.
//
// Readers wrap the kernel interfaces of common probes: the 1-Wire DS18B20
// driver (w1_slave), hwmon temp*_input files, and a plain text file holding
// degrees Celsius for bench setups. Poller keeps the last valid reading so a
// flaky bus never erases the known temperature.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/oshokin/boiler-alarm/internal/logger"
	"github.com/oshokin/boiler-alarm/internal/metrics"
)

// Supported reader kinds.
const (
	KindW1    = "w1"
	KindHwmon = "hwmon"
	KindFile  = "file"
)

var (
	// ErrCRC is returned when the 1-Wire driver reports a bad checksum.
	ErrCRC = errors.New("sensor crc check failed")
	// ErrDisconnected is returned for the driver's "no device" marker.
	ErrDisconnected = errors.New("sensor disconnected")
	// ErrPowerOnReset is returned for the DS18B20 power-on value of 85C.
	ErrPowerOnReset = errors.New("sensor returned power-on reset value")
	// ErrMalformed is returned for unparsable driver output.
	ErrMalformed = errors.New("malformed sensor output")
	// ErrUnknownKind is returned by New for unsupported kinds.
	ErrUnknownKind = errors.New("unknown sensor kind")
)

const (
	// disconnectedMilliC is the DS18B20 driver's "device disconnected" value.
	disconnectedMilliC = -127000
	// powerOnMilliC is the DS18B20 scratchpad default before a conversion.
	powerOnMilliC = 85000
)

// Reader returns one temperature in degrees Celsius.
type Reader interface {
	Read(ctx context.Context) (float64, error)
}

// New creates a reader of the given kind for path.
func New(kind, path string) (Reader, error) {
	switch kind {
	case KindW1:
		return &W1{Path: path}, nil
	case KindHwmon:
		return &Hwmon{Path: path}, nil
	case KindFile:
		return &File{Path: path}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// W1 reads a DS18B20 through /sys/bus/w1/devices/<id>/w1_slave.
type W1 struct {
	Path string
}

// Read implements Reader.
func (r *W1) Read(_ context.Context) (float64, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, fmt.Errorf("read w1 sensor: %w", err)
	}

	return ParseW1(string(data))
}

// ParseW1 parses w1_slave output: the first line ends with the CRC verdict
// ("YES"), the second carries "t=<millidegrees>".
func ParseW1(out string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, ErrMalformed
	}

	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return 0, ErrCRC
	}

	_, raw, ok := strings.Cut(lines[1], "t=")
	if !ok {
		return 0, ErrMalformed
	}

	milli, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch milli {
	case disconnectedMilliC:
		return 0, ErrDisconnected
	case powerOnMilliC:
		return 0, ErrPowerOnReset
	}

	return float64(milli) / 1000, nil
}

// Hwmon reads a temp*_input file holding millidegrees.
type Hwmon struct {
	Path string
}

// Read implements Reader.
func (r *Hwmon) Read(_ context.Context) (float64, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, fmt.Errorf("read hwmon sensor: %w", err)
	}

	milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return float64(milli) / 1000, nil
}

// File reads a decimal Celsius value, e.g. written by a test harness.
type File struct {
	Path string
}

// Read implements Reader.
func (r *File) Read(_ context.Context) (float64, error) {
	data, err := os.ReadFile(r.Path)
	if err != nil {
		return 0, fmt.Errorf("read sensor file: %w", err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return finite(value)
}

// finite rejects NaN and infinities, which ParseFloat accepts.
func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: non-finite value %v", ErrMalformed, v)
	}

	return v, nil
}

// Poller reads a Reader and remembers the last valid value.
type Poller struct {
	reader Reader

	mu    sync.Mutex
	value float64
	ok    bool
}

// NewPoller wraps reader.
func NewPoller(reader Reader) *Poller {
	return &Poller{reader: reader}
}

// Poll reads once. On failure the previous valid reading is kept and fresh
// is false.
func (p *Poller) Poll(ctx context.Context) (value float64, fresh bool) {
	v, err := p.reader.Read(ctx)
	if err == nil {
		v, err = finite(v)
	}

	metrics.ObserveReading(v, err == nil)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		logger.WarnKV(ctx, "Sensor read failed", "error", err)
		return p.value, false
	}

	p.value, p.ok = v, true

	return v, true
}

// Last returns the last valid reading, if any.
func (p *Poller) Last() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.value, p.ok
}
