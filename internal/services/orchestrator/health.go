package orchestrator

import (
	"context"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name reported for the orchestrator.
const HealthService = "cropwatch.orchestrator"

// HealthReporter mirrors the run state on the standard gRPC health service:
// NOT_SERVING after a failed run, SERVING otherwise.
type HealthReporter struct {
	srv *health.Server
}

func NewHealthReporter() *HealthReporter {
	s := health.NewServer()
	s.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	return &HealthReporter{srv: s}
}

func (h *HealthReporter) Hooks() Hooks {
	return Hooks{
		OnRunFinish: func(_ context.Context, ev RunEvent) {
			if ev.State == StateFailed {
				h.srv.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
				return
			}
			h.srv.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
		},
	}
}

// Check answers like a remote health client would.
func (h *HealthReporter) Check(ctx context.Context) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.srv.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Serve exposes the health service on addr until ctx is done.
func (h *HealthReporter) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, h.srv)

	go func() {
		<-ctx.Done()
		h.srv.Shutdown()
		gs.GracefulStop()
	}()
	log.Printf("orchestrator: gRPC health on %s", addr)
	return gs.Serve(lis)
}
