package grpc

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dmehra2102/Gym-Booking-System/internal/class/application"
	"github.com/dmehra2102/Gym-Booking-System/internal/class/infrastructure/grpc/classrpc"
)

// Server answers availability queries from the booking service. Answers are
// advisory snapshots; the authoritative decrement happens on BookingCreated.
type Server struct {
	log *slog.Logger
	svc *application.Service
}

func NewServer(log *slog.Logger, svc *application.Service) *Server {
	return &Server{log: log, svc: svc}
}

func (s *Server) GetClass(ctx context.Context, req *classrpc.GetClassRequest) (*classrpc.GetClassResponse, error) {
	a, err := s.svc.Availability(ctx, req.ID)
	if err != nil {
		s.log.ErrorContext(ctx, "availability lookup failed", "class_id", req.ID, "err", err)
		return nil, status.Error(codes.Internal, "availability lookup failed")
	}
	// Capacity never exceeds domain.MaxTotal, so both counts fit in int32.
	return &classrpc.GetClassResponse{
		ID:             a.ClassID,
		Name:           a.Name,
		Exists:         a.Exists,
		TotalCapacity:  int32(a.Total),
		AvailableSpots: int32(a.Available),
	}, nil
}

// NewGRPCServer registers srv and the standard health service on a new server.
func NewGRPCServer(srv *Server) *grpc.Server {
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(logUnary(srv.log)))
	classrpc.RegisterClassServiceServer(gs, srv)

	hs := health.NewServer()
	hs.SetServingStatus(classrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs
}

func Run(addr string, srv *Server) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	gs := NewGRPCServer(srv)
	go func() {
		if err := gs.Serve(lis); err != nil {
			srv.log.Error("grpc server stopped", "err", err)
		}
	}()
	srv.log.Info("grpc server listening", "addr", addr)
	return gs, nil
}

func logUnary(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.DebugContext(ctx, "grpc call", "method", info.FullMethod, "code", status.Code(err).String(), "took", time.Since(start))
		return resp, err
	}
}
