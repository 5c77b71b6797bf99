package grpc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"kitabuddy/internal/settings"
	"kitabuddy/internal/store/memory"
)

func TestServiceAuthInterceptor(t *testing.T) {
	if _, _, err := NewServiceAuthInterceptors(""); err == nil {
		t.Fatalf("expected empty token rejected")
	}
	unary, _, err := NewServiceAuthInterceptors("secret")
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	handler := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	cases := map[string]struct {
		ctx    context.Context
		expect codes.Code
	}{
		"missing": {context.Background(), codes.Unauthenticated},
		"wrong":   {metadata.NewIncomingContext(context.Background(), metadata.Pairs(serviceTokenHeader, "nope")), codes.PermissionDenied},
		"valid":   {metadata.NewIncomingContext(context.Background(), metadata.Pairs(serviceTokenHeader, " secret ")), codes.OK},
	}
	for name, tc := range cases {
		_, err := unary(tc.ctx, nil, info, handler)
		if status.Code(err) != tc.expect {
			t.Fatalf("%s: expected %s, got %v", name, tc.expect, err)
		}
	}
}

func TestHealthFollowsMaintenance(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()
	svc := settings.New(backing, slog.New(slog.NewTextHandler(io.Discard, nil)))
	hs := NewHealthServer(svc, nil)

	check := func(service string) healthpb.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("check %q: %v", service, err)
		}
		return resp.GetStatus()
	}

	if check(StudentService) != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected student service serving")
	}
	if err := svc.SetMaintenanceMode(ctx, true); err != nil {
		t.Fatalf("set maintenance: %v", err)
	}
	if check(StudentService) != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected student service not serving during maintenance")
	}
	if check("") != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall status serving")
	}
}
