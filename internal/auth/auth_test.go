package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
)

var secret = []byte("test-secret")

func TestIssueParse(t *testing.T) {
	t.Parallel()

	actor := &domain.Actor{Username: "o.shokin", Hostname: "laptop"}

	token, err := Issue(secret, actor, time.Hour, time.Now())
	require.NoError(t, err)

	claims, err := Parse(token, secret)
	require.NoError(t, err)
	require.Equal(t, actor, claims.Actor())

	_, err = Parse(token, []byte("other"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Issue(secret, &domain.Actor{}, time.Hour, time.Now())
	require.ErrorIs(t, err, ErrMissingSubject)

	_, err = Issue(nil, actor, time.Hour, time.Now())
	require.ErrorIs(t, err, ErrEmptySecret)
}

func TestParse_Expired(t *testing.T) {
	t.Parallel()

	token, err := Issue(secret, &domain.Actor{Username: "o.shokin"}, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)

	_, err = Parse(token, secret)
	require.ErrorIs(t, err, ErrInvalidToken)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestParse_WrongMethodAndIssuer(t *testing.T) {
	t.Parallel()

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "someone-else",
		Subject:   "o.shokin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = Parse(foreign, secret)
	require.ErrorIs(t, err, ErrInvalidToken)

	claims.Issuer = Issuer

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Parse(unsigned, secret)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = Parse("", secret)
	require.ErrorIs(t, err, ErrEmptyToken)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var seen *domain.Actor

	handler := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/state", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)

	token, err := Issue(secret, &domain.Actor{Username: "o.shokin", Hostname: "laptop"}, time.Hour, time.Now())
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPost, "/api/state", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Equal(t, "o.shokin@laptop", seen.String())
}
