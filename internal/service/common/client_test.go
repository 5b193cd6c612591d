//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	grpcalarm "github.com/oshokin/boiler-alarm/internal/api/grpc/alarm"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	pb "github.com/oshokin/boiler-alarm/internal/pb/v1"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSetState_NilActor asserts that a nil actor is rejected by the client.
func TestSetState_NilActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.SetState(context.Background(), nil, domain.Stopped)
	require.Error(t, err)
}

type stubService struct {
	mu     sync.Mutex
	status domain.Status
}

func (s *stubService) SetState(_ context.Context, actor *domain.Actor, target domain.State) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.State = target
	s.status.LastActor = actor

	return true, nil
}

func (s *stubService) Status() *domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status.Clone()
}

type stubRecords []string

func (s stubRecords) Records(context.Context) ([]string, error) { return s, nil }

// TestClient_OverBufconn drives every client call against an in-memory server.
func TestClient_OverBufconn(t *testing.T) {
	t.Parallel()

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	history := stubRecords{"2024-01-15 06:25,60.5", "2024-01-15 06:30,59.5"}
	audit := stubRecords{"2024-01-15 06:30 katilinė temp 59.5C: pranešta"}
	pb.RegisterAlarmServiceServer(server, grpcalarm.NewServer(
		&stubService{status: domain.Status{State: domain.Active}}, history, audit))

	go func() { _ = server.Serve(listener) }()

	t.Cleanup(server.Stop)

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return listener.DialContext(ctx) }

	c, err := Dial(context.Background(), "passthrough:///bufnet",
		WithCallTimeout(5*time.Second),
		WithDialOptions(grpc.WithContextDialer(dialer)))
	require.NoError(t, err)

	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Active, status.State)

	actor := &domain.Actor{Hostname: "pi", Username: "jonas"}

	status, err = c.SetState(ctx, actor, domain.Stopped)
	require.NoError(t, err)
	require.Equal(t, domain.Stopped, status.State)
	require.Equal(t, actor, status.LastActor)

	rows, err := c.History(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []string{"2024-01-15 06:30,59.5"}, rows)

	records, err := c.Audit(ctx)
	require.NoError(t, err)
	require.Equal(t, []string(audit), records)
}
