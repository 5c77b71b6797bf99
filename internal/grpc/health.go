package grpc

import (
	"log/slog"
	"sync"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"kitabuddy/internal/settings"
)

// StudentService is NOT_SERVING while maintenance mode is on. The overall
// server status stays SERVING so the admin console remains reachable.
const StudentService = "kitabuddy.student"

// NewHealthServer returns a health server that follows the shared
// maintenance flag.
func NewHealthServer(svc *settings.Service, logger *slog.Logger) *health.Server {
	if logger == nil {
		logger = slog.Default()
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	var mu sync.Mutex
	last := healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	svc.Watch(func(snap settings.Snapshot) {
		next := studentStatus(snap.MaintenanceMode)
		mu.Lock()
		defer mu.Unlock()
		if next == last {
			return
		}
		last = next
		hs.SetServingStatus(StudentService, next)
		logger.Info("student service health changed", "status", next.String())
	})
	return hs
}

func studentStatus(maintenance bool) healthpb.HealthCheckResponse_ServingStatus {
	if maintenance {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}
