package grpc_control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"onion-watch/src/helpers"
	"onion-watch/src/logger"
	"onion-watch/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// -----------------------------------------------------------------------------

// Backend is the part of the HTTP server the control service drives
type Backend interface {
	Status() models.MHealth
	SendControl(ctx context.Context, req models.MControlRequest) (int, error)
	CurrentSnapshot() models.MTrafficSnapshot
}

// -----------------------------------------------------------------------------

// ControlService implements ControlServer
type ControlService struct {
	Backend Backend
	Logger  *logger.Logger
}

// NewControlService creates a new instance of ControlService
func NewControlService(backend Backend, log *logger.Logger) *ControlService {
	return &ControlService{Backend: backend, Logger: log}
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Backend.Status())
}

// -----------------------------------------------------------------------------

func (s *ControlService) SendControl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.AsMap()
	action, _ := fields["action"].(string)
	if action == "" {
		return nil, status.Error(codes.InvalidArgument, "action is required")
	}

	recipients, err := s.Backend.SendControl(ctx, models.MControlRequest{Action: action, Value: fields["value"]})
	if err != nil {
		s.Logger.Error("Control action %q failed: %v", action, err)
		var protoErr *helpers.ProtocolError
		if errors.As(err, &protoErr) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	return toStruct(models.MControlResponse{
		Success:    true,
		Message:    fmt.Sprintf("Control action '%s' applied", action),
		Recipients: recipients,
	})
}

// -----------------------------------------------------------------------------

func (s *ControlService) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.Backend.CurrentSnapshot())
}

// -----------------------------------------------------------------------------

// toStruct converts a JSON-tagged value into a protobuf Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// ListenAndServe serves the control service until ctx is cancelled
func ListenAndServe(ctx context.Context, addr string, svc ControlServer, log *logger.Logger) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc: failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	RegisterControlServer(grpcServer, svc)

	go func() {
		<-ctx.Done()
		log.Info("gRPC control server shutting down")
		grpcServer.GracefulStop()
	}()

	log.Info("Starting gRPC Control Server on %s", addr)
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("grpc: server error: %w", err)
	}
	return nil
}
