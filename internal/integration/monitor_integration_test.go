package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/boiler-alarm/internal/auth"
	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/service/client"
)

// The monitor configures process-wide logging and metrics, so these tests
// run one at a time.

// TestMonitor_OperatorRoundtrip boots the real monitor and drives it through
// the gRPC client and the HTTP operator API.
func TestMonitor_OperatorRoundtrip(t *testing.T) {
	e := newEnv(t, config.SMS{})
	stop := e.start(t)

	defer stop()

	ctx := context.Background()
	c := e.dial(t)

	require.Eventually(t, func() bool {
		status, err := c.Status(ctx)
		return err == nil && status.HasReading && status.Temperature == 70 && status.State == domain.Active
	}, 5*time.Second, 20*time.Millisecond)

	actor := &domain.Actor{Hostname: "test-host", Username: "test-user"}

	status, err := client.PushState(ctx, c, actor, domain.Stopped, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, domain.Stopped, status.State)
	require.Equal(t, actor, status.LastActor)

	// Stopped ignores readings below the trigger.
	e.setTemp(t, 40)
	time.Sleep(100 * time.Millisecond)

	status, err = c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Stopped, status.State)

	status, err = client.PushState(ctx, c, actor, domain.Active, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, domain.Active, status.State)

	lines, err := c.Audit(ctx)
	require.NoError(t, err)
	require.True(t, containsSuffix(lines, "test-user@test-host būsena: sustabdyta"), lines)

	require.Eventually(t, func() bool {
		rows, err := c.History(ctx, 0)
		return err == nil && len(rows) > 0
	}, 5*time.Second, 20*time.Millisecond)

	token, err := auth.Issue([]byte(testSecret), actor, time.Hour, time.Now())
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPut, e.url("/api/thresholds"), token, `{"trigger_c": 30, "reset_c": 35}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, e.url("/api/thresholds"), "", `{"trigger_c": 30, "reset_c": 35}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	status, err = c.Status(ctx)
	require.NoError(t, err)
	require.InDelta(t, 30.0, status.Thresholds.TriggerC, 1e-9)
	require.InDelta(t, 35.0, status.Thresholds.ResetC, 1e-9)

	csv := get(t, e.url("/hist"))
	require.Contains(t, csv, ",")
}

// TestMonitor_SettingsSurviveRestart checks that operator settings are read
// back from the data directory.
func TestMonitor_SettingsSurviveRestart(t *testing.T) {
	e := newEnv(t, config.SMS{})
	stop := e.start(t)

	actor := &domain.Actor{Hostname: "test-host", Username: "test-user"}
	token, err := auth.Issue([]byte(testSecret), actor, time.Hour, time.Now())
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPut, e.url("/api/phones"), token, `{"phones": "+37060000001 +37060000002"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, e.url("/api/thresholds"), token, `{"trigger_c": 50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	stop()

	stop = e.start(t)
	defer stop()

	status, err := e.dial(t).Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"+37060000001", "+37060000002"}, status.Phones)
	require.InDelta(t, 50.0, status.Thresholds.TriggerC, 1e-9)

	audit := get(t, e.url("/audit"))
	require.Contains(t, audit, "telefonai: 2")
}

// TestMonitor_AlarmSendsSMS drops the temperature below the trigger and waits
// for the portal to receive the notification.
func TestMonitor_AlarmSendsSMS(t *testing.T) {
	portal, smsCfg := newFakePortal(t)
	e := newEnv(t, smsCfg)
	stop := e.start(t)

	defer stop()

	ctx := context.Background()
	c := e.dial(t)

	require.Eventually(t, func() bool {
		status, err := c.Status(ctx)
		return err == nil && status.State == domain.Active
	}, 5*time.Second, 20*time.Millisecond)

	token, err := auth.Issue([]byte(testSecret), &domain.Actor{Username: "test-user"}, time.Hour, time.Now())
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPut, e.url("/api/phones"), token, `{"phones": "+37060000001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	e.setTemp(t, 55)

	require.Eventually(t, func() bool {
		return len(portal.messages()) == 1
	}, 5*time.Second, 20*time.Millisecond)

	msg := portal.messages()[0]
	require.Equal(t, "+37060000001", msg.recipient)
	require.Contains(t, msg.text, "55.0")

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Triggered, status.State)

	// Staying cold does not notify again.
	time.Sleep(200 * time.Millisecond)
	require.Len(t, portal.messages(), 1)
}

func containsSuffix(lines []string, suffix string) bool {
	for _, line := range lines {
		if strings.HasSuffix(line, suffix) {
			return true
		}
	}

	return false
}

func doJSON(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewBufferString(body))
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var discard json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&discard)
	require.NoError(t, resp.Body.Close())

	return resp
}

func get(t *testing.T, url string) string {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return string(body)
}
