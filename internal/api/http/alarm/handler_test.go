package alarm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/boiler-alarm/internal/auth"
	"github.com/oshokin/boiler-alarm/internal/clock"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/domain/phone"
)

var testSecret = []byte("test-secret")

type fakeService struct {
	mu     sync.Mutex
	status domain.Status
	err    error
}

func (f *fakeService) Status() *domain.Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.status.Clone()
}

func (f *fakeService) SetState(_ context.Context, actor *domain.Actor, target domain.State) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return false, f.err
	}

	f.status.State = target
	f.status.LastActor = actor

	return true, nil
}

func (f *fakeService) UpdateThresholds(
	_ context.Context,
	_ *domain.Actor,
	t domain.Thresholds,
) (domain.Thresholds, error) {
	valid, err := t.Validate(domain.Range{MinC: 5, MaxC: 95})
	if err != nil {
		return f.Status().Thresholds, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.status.Thresholds = valid

	return valid, nil
}

func (f *fakeService) UpdatePhones(_ context.Context, _ *domain.Actor, raw string) ([]string, error) {
	phones := phone.Parse(raw)
	if len(phones) == 0 && strings.TrimSpace(raw) != "" {
		return f.Status().Phones, &domain.ValidationError{Field: "phones", Reason: "no valid number"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.status.Phones = phones

	return phones, nil
}

type fakeRecords struct {
	lines []string
	err   error
}

func (f fakeRecords) Records(context.Context) ([]string, error) { return f.lines, f.err }

type fakeQuota struct{ used, limit int }

func (f fakeQuota) Used(context.Context) (int, error) { return f.used, nil }
func (f fakeQuota) Limit() int                        { return f.limit }

func newTestServer(t *testing.T, svc *fakeService, history, audit fakeRecords) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(NewHandler(Options{
		Service: svc,
		History: history,
		Audit:   audit,
		Quota:   fakeQuota{used: 1, limit: 5},
		Clock:   clock.NewManual(time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC)),
		Secret:  testSecret,
	}))
	t.Cleanup(srv.Close)

	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url) //nolint:noctx // test helper
	require.NoError(t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func operatorToken(t *testing.T) string {
	t.Helper()

	token, err := auth.Issue(testSecret, &domain.Actor{Hostname: "pi", Username: "jonas"}, time.Hour, time.Now())
	require.NoError(t, err)

	return token
}

func send(t *testing.T, method, url, token, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewBufferString(body))
	require.NoError(t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(data)
}

func TestTemp(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	srv := newTestServer(t, svc, fakeRecords{}, fakeRecords{})

	resp, body := get(t, srv.URL+"/temp")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.JSONEq(t, `{"temp_c": null}`, body)

	svc.mu.Lock()
	svc.status.Temperature, svc.status.HasReading = 58.5, true
	svc.mu.Unlock()

	_, body = get(t, srv.URL+"/temp")
	require.JSONEq(t, `{"temp_c": 58.5}`, body)

	// 1-Wire resolution is 1/16 C; the endpoint serves one decimal.
	svc.mu.Lock()
	svc.status.Temperature = 21.4375
	svc.mu.Unlock()

	_, body = get(t, srv.URL+"/temp")
	require.JSONEq(t, `{"temp_c": 21.4}`, body)

	_, body = get(t, srv.URL+"/status")
	require.Contains(t, body, `"temp_c":21.4,`)
}

func TestInfo(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{}, fakeRecords{}, fakeRecords{})

	_, body := get(t, srv.URL+"/info")

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &info))
	require.Contains(t, info, "commit")
	require.Contains(t, info, "compileTime")
	require.Contains(t, info, "lastBoot")
	require.Equal(t, "2024-01-15T06:30:00Z", info["systemTime"])
}

func TestHistoryCSV(t *testing.T) {
	t.Parallel()

	rows := []string{"2024-01-15 06:25,60.5", "2024-01-15 06:30,59.5"}
	srv := newTestServer(t, &fakeService{}, fakeRecords{lines: rows}, fakeRecords{})

	resp, body := get(t, srv.URL+"/hist")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Equal(t, "2024-01-15 06:25,60.5\n2024-01-15 06:30,59.5\n", body)

	resp, body = get(t, srv.URL+"/hist.pdf")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.True(t, strings.HasPrefix(body, "%PDF-"))

	resp, _ = get(t, srv.URL+"/hist.xlsx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "history.xlsx")
}

func TestStorageFailure(t *testing.T) {
	t.Parallel()

	broken := fakeRecords{err: errors.New("io")}
	srv := newTestServer(t, &fakeService{}, broken, broken)

	resp, _ := get(t, srv.URL+"/hist")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = get(t, srv.URL+"/audit")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The page degrades to fallbacks instead of failing.
	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "<pre>--</pre>")
}

func TestStatusPage(t *testing.T) {
	t.Parallel()

	svc := &fakeService{status: domain.Status{
		State:       domain.Active,
		Temperature: 61.2,
		HasReading:  true,
		Thresholds:  domain.Thresholds{TriggerC: 60, ResetC: 66},
		Phones:      []string{"+37060000000"},
	}}
	audit := fakeRecords{lines: []string{"2024-01-15 06:30 katilinė temp 61.2C: aktyvūs"}}
	srv := newTestServer(t, svc, fakeRecords{lines: []string{"2024-01-15 06:30,61.2"}}, audit)

	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "61.2 &deg;C")
	require.Contains(t, body, "<b>active</b>")
	require.Contains(t, body, "+37060000000")
	require.Contains(t, body, "1/5")
	require.Contains(t, body, "aktyvūs")
	require.NotContains(t, body, "%TEMP%")
}

func TestNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{}, fakeRecords{}, fakeRecords{})

	resp, body := get(t, srv.URL+"/nope")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "404 page not found\n", body)
}

func TestOperatorAPI_RequiresToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeService{}, fakeRecords{}, fakeRecords{})

	resp, _ := send(t, http.MethodPost, srv.URL+"/api/state", "", `{"state":"stopped"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, http.MethodPost, srv.URL+"/api/state", "garbage", `{"state":"stopped"}`)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOperatorAPI_State(t *testing.T) {
	t.Parallel()

	svc := &fakeService{status: domain.Status{State: domain.Active}}
	srv := newTestServer(t, svc, fakeRecords{}, fakeRecords{})
	token := operatorToken(t)

	resp, body := send(t, http.MethodPost, srv.URL+"/api/state", token, `{"state":"stopped"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	require.Equal(t, "stopped", status["state"])
	require.Equal(t, map[string]any{"hostname": "pi", "username": "jonas"}, status["last_actor"])

	resp, _ = send(t, http.MethodPost, srv.URL+"/api/state", token, `{"state":"melting"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = send(t, http.MethodPost, srv.URL+"/api/state", token, `not json`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.mu.Lock()
	svc.err = errors.New("boom")
	svc.mu.Unlock()

	resp, _ = send(t, http.MethodPost, srv.URL+"/api/state", token, `{"state":"active"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestOperatorAPI_Thresholds(t *testing.T) {
	t.Parallel()

	svc := &fakeService{status: domain.Status{Thresholds: domain.Thresholds{TriggerC: 60, ResetC: 66}}}
	srv := newTestServer(t, svc, fakeRecords{}, fakeRecords{})
	token := operatorToken(t)

	resp, _ := send(t, http.MethodPut, srv.URL+"/api/thresholds", token, `{"trigger_c": 55}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, domain.Thresholds{TriggerC: 55, ResetC: 66}, svc.Status().Thresholds)

	resp, _ = send(t, http.MethodPut, srv.URL+"/api/thresholds", token, `{"trigger_c": 70, "reset_c": 65}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, domain.Thresholds{TriggerC: 55, ResetC: 66}, svc.Status().Thresholds)
}

func TestOperatorAPI_Phones(t *testing.T) {
	t.Parallel()

	svc := &fakeService{}
	srv := newTestServer(t, svc, fakeRecords{}, fakeRecords{})
	token := operatorToken(t)

	resp, body := send(t, http.MethodPut, srv.URL+"/api/phones", token, `{"phones":"+37060000000;+37060000001"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "+37060000001")

	resp, _ = send(t, http.MethodPut, srv.URL+"/api/phones", token, `{"phones":"call me"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, []string{"+37060000000", "+37060000001"}, svc.Status().Phones)
}

func TestOperatorAPI_DisabledWithoutSecret(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewHandler(Options{
		Service: &fakeService{},
		History: fakeRecords{},
		Audit:   fakeRecords{},
		Clock:   clock.NewManual(time.Now()),
	}))
	t.Cleanup(srv.Close)

	resp, _ := send(t, http.MethodPost, srv.URL+"/api/state", "", `{"state":"stopped"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
