package sms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// CookieName is the portal session cookie.
	CookieName = "scml"
	// TokenMarker precedes the form token in the SMS page.
	TokenMarker = `name="sms_submit[_token]"`

	fieldUsername  = "_username"
	fieldPassword  = "_password"
	fieldRecipient = "sms_submit[recipientNumber]"
	fieldMessage   = "sms_submit[textMessage]"
	fieldToken     = "sms_submit[_token]"

	contentTypeForm = "application/x-www-form-urlencoded"

	// loginCookies mimics a first visit so the portal issues a new session.
	loginCookies = "scml=; TS011605d9=0"

	// maxPageSize bounds how much of the SMS page is read.
	maxPageSize = 4 << 20

	// DefaultTimeout bounds each portal request.
	DefaultTimeout = 15 * time.Second
)

// Step names used in SessionError.
const (
	StepLogin = "login"
	StepToken = "token"
	StepSend  = "send"
)

var (
	// ErrMissingCookie is returned when login yields no session cookie.
	ErrMissingCookie = errors.New("session cookie missing")
	// ErrMissingToken is returned when the SMS page has no form token.
	ErrMissingToken = errors.New("form token missing")
	// ErrNotLoggedIn is returned by Send before a successful Login.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrUnexpectedStatus is returned for 4xx/5xx portal responses.
	ErrUnexpectedStatus = errors.New("unexpected portal status")
)

// SessionError reports which handshake step failed.
type SessionError struct {
	// Step is one of StepLogin, StepToken, StepSend.
	Step string
	// Err is the underlying cause.
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("sms %s: %v", e.Step, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Config holds portal endpoints and credentials.
type Config struct {
	// BaseURL serves the SMS page (GET) and accepts messages (POST).
	BaseURL string
	// LoginURL accepts the credentials form.
	LoginURL string
	// Username is the portal login.
	Username string
	// Password is the portal password.
	Password string
	// Timeout bounds every request; zero means DefaultTimeout.
	Timeout time.Duration
}

// Session holds the credentials of one handshake. It is not safe for
// concurrent use.
type Session struct {
	cfg    Config
	client *http.Client
	cookie string
	token  string
}

// NewClient returns an HTTP client that never follows redirects: the login
// response carries the cookie on the redirect itself.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NewSession creates a session. A nil client gets NewClient(cfg.Timeout).
func NewSession(cfg Config, client *http.Client) *Session {
	if client == nil {
		client = NewClient(cfg.Timeout)
	}

	return &Session{
		cfg:    cfg,
		client: client,
	}
}

// Login obtains the session cookie and then the form token.
func (s *Session) Login(ctx context.Context) error {
	s.cookie, s.token = "", ""

	cookie, err := s.fetchCookie(ctx)
	if err != nil {
		return &SessionError{Step: StepLogin, Err: err}
	}

	token, err := s.fetchToken(ctx, cookie)
	if err != nil {
		return &SessionError{Step: StepToken, Err: err}
	}

	s.cookie, s.token = cookie, token

	return nil
}

// Send posts one message using the credentials of the last Login.
func (s *Session) Send(ctx context.Context, recipient, message string) error {
	if s.cookie == "" || s.token == "" {
		return &SessionError{Step: StepSend, Err: ErrNotLoggedIn}
	}

	body := formBody(
		fieldRecipient, recipient,
		fieldMessage, message,
		fieldToken, s.token,
	)

	resp, err := s.do(ctx, http.MethodPost, s.cfg.BaseURL, body, CookieName+"="+s.cookie)
	if err != nil {
		return &SessionError{Step: StepSend, Err: err}
	}

	drain(resp)

	return nil
}

func (s *Session) fetchCookie(ctx context.Context) (string, error) {
	body := formBody(
		fieldUsername, s.cfg.Username,
		fieldPassword, s.cfg.Password,
	)

	resp, err := s.do(ctx, http.MethodPost, s.cfg.LoginURL, body, loginCookies)
	if err != nil {
		return "", err
	}

	drain(resp)

	for _, c := range resp.Cookies() {
		if c.Name == CookieName && c.Value != "" {
			return c.Value, nil
		}
	}

	return "", ErrMissingCookie
}

func (s *Session) fetchToken(ctx context.Context, cookie string) (string, error) {
	resp, err := s.do(ctx, http.MethodGet, s.cfg.BaseURL, "", CookieName+"="+cookie)
	if err != nil {
		return "", err
	}

	defer drain(resp)

	page, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("read sms page: %w", err)
	}

	token, ok := ExtractToken(string(page))
	if !ok {
		return "", ErrMissingToken
	}

	return token, nil
}

// ExtractToken finds the form token: the text between `value="` and the next
// quote, searched from TokenMarker onwards.
func ExtractToken(page string) (string, bool) {
	i := strings.Index(page, TokenMarker)
	if i < 0 {
		return "", false
	}

	token, ok := between(page[i:], `value="`, `"`)
	if !ok || token == "" {
		return "", false
	}

	return token, true
}

func between(s, left, right string) (string, bool) {
	_, rest, ok := strings.Cut(s, left)
	if !ok {
		return "", false
	}

	value, _, ok := strings.Cut(rest, right)

	return value, ok
}

func (s *Session) do(ctx context.Context, method, url, body, cookie string) (*http.Response, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	if body != "" {
		req.Header.Set("Content-Type", contentTypeForm)
	}

	req.Header.Set("Cookie", cookie)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		drain(resp)
		return nil, fmt.Errorf("%w: %s %s: %d", ErrUnexpectedStatus, method, url, resp.StatusCode)
	}

	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageSize))
	_ = resp.Body.Close()
}
