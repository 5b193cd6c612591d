//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oshokin/boiler-alarm/internal/config"
	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	pb "github.com/oshokin/boiler-alarm/internal/pb/v1"
)

// Client wraps the gRPC AlarmService client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the monitor.
	conn *grpc.ClientConn
	// api is the AlarmService client interface.
	api pb.AlarmServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
	dialOptions []grpc.DialOption
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithDialOptions appends gRPC dial options, e.g. a custom dialer in tests.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *Client) {
		c.dialOptions = append(c.dialOptions, opts...)
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial establishes a gRPC connection to the monitor.
// Note: this uses insecure transport credentials; the monitor listens on
// loopback by default.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	client := &Client{
		callTimeout: config.DefaultTimeout,
		dialOptions: []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}

	for _, opt := range opts {
		opt(client)
	}

	conn, err := grpc.NewClient(address, client.dialOptions...)
	if err != nil {
		return nil, fmt.Errorf("dial monitor: %w", err)
	}

	client.conn = conn
	client.api = pb.NewAlarmServiceClient(conn)

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Status retrieves the controller snapshot.
func (c *Client) Status(ctx context.Context) (*domain.Status, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return pb.StatusFromStruct(resp)
}

// SetState requests Active or Stopped on behalf of actor.
func (c *Client) SetState(ctx context.Context, actor *domain.Actor, target domain.State) (*domain.Status, error) {
	if actor == nil {
		return nil, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetState(callCtx, pb.NewSetStateRequest(target, actor))
	if err != nil {
		return nil, fmt.Errorf("set state: %w", err)
	}

	return pb.StatusFromStruct(resp)
}

// History returns at most limit history rows, oldest first; zero means all.
func (c *Client) History(ctx context.Context, limit int) ([]string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetHistory(callCtx, pb.NewHistoryRequest(limit))
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return pb.LinesFromList(resp), nil
}

// Audit returns audit records, newest first.
func (c *Client) Audit(ctx context.Context) ([]string, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetAudit(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get audit: %w", err)
	}

	return pb.LinesFromList(resp), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
