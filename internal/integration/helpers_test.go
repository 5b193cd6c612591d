package integration

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/boiler-alarm/internal/config"
	"github.com/oshokin/boiler-alarm/internal/service/common"
	"github.com/oshokin/boiler-alarm/internal/service/monitor"
	"github.com/oshokin/boiler-alarm/internal/sms"
)

const testSecret = "integration-secret"

// reservePort returns a loopback address that was free a moment ago.
func reservePort(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := l.Addr().String()
	require.NoError(t, l.Close())

	return addr
}

// env is one monitor deployment on disk: config, sensor file and data dir.
type env struct {
	cfgPath    string
	sensorPath string
	grpcAddr   string
	httpAddr   string
}

func newEnv(t *testing.T, smsCfg config.SMS) *env {
	t.Helper()

	dir := t.TempDir()
	e := &env{
		cfgPath:    filepath.Join(dir, config.DefaultConfigFilename),
		sensorPath: filepath.Join(dir, "sensor"),
		grpcAddr:   reservePort(t),
		httpAddr:   reservePort(t),
	}

	e.setTemp(t, 70)

	require.NoError(t, config.Save(e.cfgPath, &config.Config{
		GRPCAddress: e.grpcAddr,
		HTTPAddress: e.httpAddr,
		DataDir:     filepath.Join(dir, "data"),
		Timezone:    "UTC",
		LogLevel:    "error",
		Timeout:     3 * time.Second,
		Sensor: config.Sensor{
			Kind:         "file",
			Path:         e.sensorPath,
			PollInterval: 20 * time.Millisecond,
		},
		History: config.History{
			Strategy: config.StrategyRotation,
			Interval: 20 * time.Millisecond,
			Files:    3,
			PerFile:  20,
		},
		SMS:      smsCfg,
		Operator: config.Operator{JWTSecret: testSecret},
	}))

	return e
}

func (e *env) setTemp(t *testing.T, tempC float64) {
	t.Helper()

	// Write then rename so the poller never sees a half-written file.
	tmp := e.sensorPath + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(strconv.FormatFloat(tempC, 'f', 1, 64)), 0o600))
	require.NoError(t, os.Rename(tmp, e.sensorPath))
}

// start runs the monitor until the returned stop function is called.
func (e *env) start(t *testing.T) (stop func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- monitor.Run(ctx, &monitor.Options{ConfigPath: e.cfgPath})
	}()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", e.grpcAddr, 100*time.Millisecond)
		if err != nil {
			return false
		}

		_ = conn.Close()

		return true
	}, 5*time.Second, 20*time.Millisecond)

	return func() {
		cancel()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("monitor stopped with error: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Error("monitor did not stop")
		}
	}
}

func (e *env) dial(t *testing.T) *common.Client {
	t.Helper()

	c, err := common.Dial(context.Background(), e.grpcAddr, common.WithCallTimeout(3*time.Second))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func (e *env) url(path string) string {
	return fmt.Sprintf("http://%s%s", e.httpAddr, path)
}

type sentSMS struct {
	recipient string
	text      string
}

// fakePortal imitates the operator web portal: login, form token, send.
type fakePortal struct {
	mu   sync.Mutex
	sent []sentSMS
}

func newFakePortal(t *testing.T) (*fakePortal, config.SMS) {
	t.Helper()

	p := new(fakePortal)
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("_username") != "boiler" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{Name: sms.CookieName, Value: "s1", Path: "/"})
		http.Redirect(w, r, "/sms", http.StatusFound)
	})
	mux.HandleFunc("GET /sms", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<input type="hidden" name="sms_submit[_token]" value="t1">`)
	})
	mux.HandleFunc("POST /sms", func(_ http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.sent = append(p.sent, sentSMS{
			recipient: r.FormValue("sms_submit[recipientNumber]"),
			text:      r.FormValue("sms_submit[textMessage]"),
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return p, config.SMS{
		BaseURL:    srv.URL + "/sms",
		LoginURL:   srv.URL + "/login",
		Username:   "boiler",
		Password:   "secret",
		Attempts:   2,
		RetryDelay: 10 * time.Millisecond,
		Timeout:    2 * time.Second,
	}
}

func (p *fakePortal) messages() []sentSMS {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]sentSMS(nil), p.sent...)
}
