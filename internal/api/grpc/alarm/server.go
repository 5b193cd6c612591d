package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/boiler-alarm/internal/domain/alarm"
	"github.com/oshokin/boiler-alarm/internal/logger"
	pb "github.com/oshokin/boiler-alarm/internal/pb/v1"
)

// Service abstracts the controller operations the transport layer depends on.
type Service interface {
	SetState(ctx context.Context, actor *domain.Actor, target domain.State) (bool, error)
	Status() *domain.Status
}

// RecordSource lists persisted records.
type RecordSource interface {
	Records(ctx context.Context) ([]string, error)
}

// Server implements the AlarmService gRPC API.
type Server struct {
	pb.UnimplementedAlarmServiceServer

	// service provides the controller operations.
	service Service
	history RecordSource
	audit   RecordSource
}

// NewServer wires the controller and stores into a gRPC handler.
func NewServer(service Service, history, audit RecordSource) *Server {
	return &Server{
		service: service,
		history: history,
		audit:   audit,
	}
}

// GetStatus returns the controller snapshot.
func (s *Server) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return pb.StatusToStruct(s.service.Status()), nil
}

// SetState applies an operator command. The request must carry an actor.
func (s *Server) SetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	target, actor, err := pb.ParseSetStateRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if actor == nil {
		return nil, status.Error(codes.InvalidArgument, "actor is required")
	}

	changed, err := s.service.SetState(ctx, actor, target)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		}

		logger.ErrorKV(ctx, "Failed to set alarm state", "actor", actor.String(), "error", err)

		return nil, status.Error(codes.Internal, "unable to change state")
	}

	if changed {
		logger.InfoKV(ctx, "Alarm state changed over gRPC", "actor", actor.String(), "state", target.String())
	}

	return pb.StatusToStruct(s.service.Status()), nil
}

// GetHistory returns history rows, oldest first, optionally limited to the newest N.
func (s *Server) GetHistory(ctx context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	rows, err := s.history.Records(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to read history")
	}

	if limit := pb.HistoryLimit(req); limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	return pb.LinesToList(rows), nil
}

// GetAudit returns audit records, newest first.
func (s *Server) GetAudit(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	records, err := s.audit.Records(ctx)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to read audit trail")
	}

	return pb.LinesToList(records), nil
}
